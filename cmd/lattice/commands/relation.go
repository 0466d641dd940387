package commands

import (
	"github.com/spf13/cobra"

	"github.com/jacentio/lattice/relation"
)

// parseRefs parses type#id arguments.
func parseRefs(args ...string) ([]relation.Ref, error) {
	refs := make([]relation.Ref, len(args))
	for i, s := range args {
		ref, err := relation.ParseRef(s)
		if err != nil {
			return nil, err
		}
		refs[i] = ref
	}
	return refs, nil
}

// index resolves the index of attr on from, registering every ref's type.
func (a *app) index(from relation.Ref, attr string, refs ...relation.Ref) (*relation.Index, error) {
	g, err := a.graph(append(refs, from)...)
	if err != nil {
		return nil, err
	}
	return g.Relation(from.Type, attr)
}

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <from> <attr> <to>",
		Short: "Create the edge from → to",
		Long: `Create the edge from → to under attribute attr.

Fails if the pair already has an edge.

Examples:
  lattice put user#u1 follows tag#t1`,
		Args: cobra.ExactArgs(3),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0], args[2])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1], refs[1])
			if err != nil {
				return err
			}
			edge, err := idx.Put(cmd.Context(), refs[0], refs[1])
			if err != nil {
				return err
			}
			return a.print(cmd, newEdgeView(edge))
		}),
	}
}

func newDelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del <from> <attr> <to>",
		Short: "Remove the edge from → to",
		Long: `Remove the edge from → to under attribute attr.

Removing a missing edge is a no-op that reports the current count.`,
		Args: cobra.ExactArgs(3),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0], args[2])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1], refs[1])
			if err != nil {
				return err
			}
			res, err := idx.Del(cmd.Context(), refs[0], refs[1])
			if err != nil {
				return err
			}
			return a.print(cmd, delView{Count: res.Count, Removed: res.Removed})
		}),
	}
}

func newHasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "has <from> <attr> <to>",
		Short: "Report whether the edge from → to exists",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0], args[2])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1], refs[1])
			if err != nil {
				return err
			}
			has, err := idx.Has(cmd.Context(), refs[0], refs[1])
			if err != nil {
				return err
			}
			return a.print(cmd, hasView{Has: has})
		}),
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <from> <attr>",
		Short: "Print the number of edges of from",
		Args:  cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1])
			if err != nil {
				return err
			}
			n, err := idx.Count(cmd.Context(), refs[0])
			if err != nil {
				return err
			}
			return a.print(cmd, countView{Count: n})
		}),
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		limit  int
		start  string
		end    string
		oldest bool
	)
	cmd := &cobra.Command{
		Use:   "list <from> <attr>",
		Short: "List the edges of from, newest first",
		Long: `List the edges of from under attribute attr, newest first.

--start and --end bound the edge ids (inclusive) and --oldest reverses the
order. Target types not named on the command line must be given with --types.

Examples:
  lattice list user#u1 follows --types tag
  lattice list user#u1 follows --types tag --oldest --limit 5`,
		Args: cobra.ExactArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1])
			if err != nil {
				return err
			}
			opts := relation.ListOptions{
				Start:   start,
				End:     end,
				Limit:   limit,
				Reverse: relation.Bool(!oldest),
			}
			out := []relatedView{}
			err = idx.Each(cmd.Context(), refs[0], opts, func(r relation.Related) error {
				out = append(out, relatedView{
					Entity:     relation.RefOf(r.Entity).String(),
					RelationID: r.RelationID(),
				})
				return nil
			})
			if err != nil {
				return err
			}
			return a.print(cmd, out)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of edges (0 = all)")
	cmd.Flags().StringVar(&start, "start", "", "lowest edge id to include")
	cmd.Flags().StringVar(&end, "end", "", "highest edge id to include")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "list oldest first")
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <from> <attr> <to>",
		Short: "Remove the edge from → to if it exists, create it otherwise",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			refs, err := parseRefs(args[0], args[2])
			if err != nil {
				return err
			}
			idx, err := a.index(refs[0], args[1], refs[1])
			if err != nil {
				return err
			}
			res, err := idx.Toggle(cmd.Context(), refs[0], refs[1])
			if err != nil {
				return err
			}
			view := toggleView{Added: res.Added, Count: res.Count}
			if res.Edge != nil {
				view.Edge = newEdgeView(*res.Edge)
			}
			return a.print(cmd, view)
		}),
	}
}
