package commands

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/jacentio/lattice/relation"
)

// print writes result as YAML, or as indented JSON with --json.
func (a *app) print(cmd *cobra.Command, result any) error {
	w := a.output(cmd)
	if a.v.GetBool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

type edgeView struct {
	ID     string `json:"id" yaml:"id"`
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	ToType string `json:"toType" yaml:"toType"`
	Count  int64  `json:"count" yaml:"count"`
}

func newEdgeView(e relation.Edge) *edgeView {
	return &edgeView{ID: e.ID, From: e.From, To: e.To, ToType: e.ToType, Count: e.Count}
}

type delView struct {
	Count   int64 `json:"count" yaml:"count"`
	Removed bool  `json:"removed" yaml:"removed"`
}

type hasView struct {
	Has bool `json:"has" yaml:"has"`
}

type countView struct {
	Count int64 `json:"count" yaml:"count"`
}

type relatedView struct {
	Entity     string `json:"entity" yaml:"entity"`
	RelationID string `json:"relationId" yaml:"relationId"`
}

type toggleView struct {
	Added bool      `json:"added" yaml:"added"`
	Count int64     `json:"count" yaml:"count"`
	Edge  *edgeView `json:"edge,omitempty" yaml:"edge,omitempty"`
}

type pairView struct {
	State string    `json:"state" yaml:"state"`
	From  *edgeView `json:"from,omitempty" yaml:"from,omitempty"`
	To    *edgeView `json:"to,omitempty" yaml:"to,omitempty"`
}

type tableView struct {
	Table  string `json:"table" yaml:"table"`
	Status string `json:"status" yaml:"status"`
}
