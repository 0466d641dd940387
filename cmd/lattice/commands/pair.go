package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacentio/lattice/relation"
)

// pairArgs parses <from> <from-attr> <to> <to-attr>.
func (a *app) pairArgs(args []string) (*relation.Bidirectional, relation.Ref, relation.Ref, error) {
	refs, err := parseRefs(args[0], args[2])
	if err != nil {
		return nil, relation.Ref{}, relation.Ref{}, err
	}
	g, err := a.graph(refs...)
	if err != nil {
		return nil, relation.Ref{}, relation.Ref{}, err
	}
	return g.Pair(args[1], args[3]), refs[0], refs[1], nil
}

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <from> <from-attr> <to> <to-attr>",
		Short: "Create a bidirectional relation",
		Long: `Create from → to under from-attr and to → from under to-attr.

If the second edge cannot be written the first is removed again. Should that
also fail, the error reports the state the pair was left in.

Examples:
  lattice link user#u1 follows tag#t1 followers`,
		Args: cobra.ExactArgs(4),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			pair, from, to, err := a.pairArgs(args)
			if err != nil {
				return err
			}
			edges, err := pair.Put(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return a.print(cmd, pairView{
				State: relation.StatePresentBoth.String(),
				From:  newEdgeView(edges.From),
				To:    newEdgeView(edges.To),
			})
		}),
	}
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <from> <from-attr> <to> <to-attr>",
		Short: "Remove a bidirectional relation",
		Args:  cobra.ExactArgs(4),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			pair, from, to, err := a.pairArgs(args)
			if err != nil {
				return err
			}
			if err := pair.Del(cmd.Context(), from, to); err != nil {
				return err
			}
			return a.print(cmd, pairView{State: relation.StateAbsentBoth.String()})
		}),
	}
}

func newLinkedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "linked <from> <from-attr> <to> <to-attr>",
		Short: "Report the state of a bidirectional relation",
		Long: `Report which sides of a bidirectional relation exist:
absent_both, present_both, from_only or to_only.`,
		Args: cobra.ExactArgs(4),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			pair, from, to, err := a.pairArgs(args)
			if err != nil {
				return err
			}
			state, err := pair.State(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			return a.print(cmd, pairView{State: state.String()})
		}),
	}
}

var errNotDynamo = errors.New("init-table requires --store dynamodb")

func newInitTableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-table",
		Short: "Create the DynamoDB relation table",
		Long: `Create the DynamoDB relation table (pk/sk, on-demand billing, streams with
new and old images) and wait until it is active. An existing table is left as is.

Examples:
  lattice --store dynamodb --endpoint http://localhost:8000 init-table`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if a.dynamo == nil {
				return errNotDynamo
			}
			if err := a.dynamo.EnsureTable(cmd.Context()); err != nil {
				return fmt.Errorf("init table: %w", err)
			}
			return a.print(cmd, tableView{Table: a.dynamo.Table(), Status: "ACTIVE"})
		}),
	}
}
