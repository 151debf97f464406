package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/born-ml/tdd/internal/serialization"
	"github.com/born-ml/tdd/internal/store"
	"github.com/born-ml/tdd/internal/tdd"
)

func newInspectCmd(c *cli) *cobra.Command {
	var order []int
	cmd := &cobra.Command{
		Use:   "inspect [tensor.json]",
		Short: "Build a diagram and report its size and axis orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.engine()
			if err != nil {
				return err
			}
			d, _, err := c.load(e, args[0], order)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "shape\t%v\n", []int(d.Shape()))
			fmt.Fprintf(w, "parallel shape\t%v\n", []int(d.ParallelShape()))
			fmt.Fprintf(w, "storage order\t%v\n", d.StorageOrder())
			fmt.Fprintf(w, "nodes\t%d\n", d.Size())
			fmt.Fprintf(w, "weight\t%v\n", d.Weight())
			return w.Flush()
		},
	}
	cmd.Flags().IntSliceVar(&order, "order", nil, "storage order: logical axis per depth")
	return cmd
}

func newContractCmd(c *cli) *cobra.Command {
	var axesA, axesB []int
	var out string
	cmd := &cobra.Command{
		Use:   "contract [tensor.json]",
		Short: "Trace a tensor over pairs of axes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.engine()
			if err != nil {
				return err
			}
			d, _, err := c.load(e, args[0], nil)
			if err != nil {
				return err
			}
			r, err := d.Contract(axesA, axesB)
			if err != nil {
				return err
			}
			return writeResult(cmd, r, out)
		},
	}
	cmd.Flags().IntSliceVar(&axesA, "a", nil, "first axis of each pair")
	cmd.Flags().IntSliceVar(&axesB, "b", nil, "second axis of each pair")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to a file")
	return cmd
}

func newTensordotCmd(c *cli) *cobra.Command {
	var axesA, axesB []int
	var out string
	cmd := &cobra.Command{
		Use:   "tensordot [a.json] [b.json]",
		Short: "Contract two tensors over paired axes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.engine()
			if err != nil {
				return err
			}
			a, _, err := c.load(e, args[0], nil)
			if err != nil {
				return err
			}
			b, _, err := c.load(e, args[1], nil)
			if err != nil {
				return err
			}
			r, err := tdd.Tensordot(a, b, axesA, axesB)
			if err != nil {
				return err
			}
			return writeResult(cmd, r, out)
		},
	}
	cmd.Flags().IntSliceVar(&axesA, "axes-a", nil, "contracted axes of the first tensor")
	cmd.Flags().IntSliceVar(&axesB, "axes-b", nil, "contracted axes of the second tensor")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to a file")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var order []int
	cmd := &cobra.Command{
		Use:   "export [tensor.json] [out.tdd]",
		Short: "Write the diagram of a tensor to a .tdd file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.engine()
			if err != nil {
				return err
			}
			d, _, err := c.load(e, args[0], order)
			if err != nil {
				return err
			}
			if err := serialization.WriteFile(args[1], e.Export(d)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d nodes)\n", args[1], d.Size())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&order, "order", nil, "storage order: logical axis per depth")
	return cmd
}

func (c *cli) openStore() (*store.Store, error) {
	return store.Open(store.Options{Dir: c.dbDir, SyncWrites: true, Logger: c.logger})
}

func newSaveCmd(c *cli) *cobra.Command {
	var order []int
	cmd := &cobra.Command{
		Use:   "save [name] [tensor.json]",
		Short: "Store the diagram of a tensor under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.engine()
			if err != nil {
				return err
			}
			d, _, err := c.load(e, args[1], order)
			if err != nil {
				return err
			}
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Put(args[0], e.Export(d)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d nodes)\n", args[0], d.Size())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&order, "order", nil, "storage order: logical axis per depth")
	return cmd
}

func newLoadCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "load [name]",
		Short: "Materialize a stored diagram as a tensor file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			snap, err := s.Get(args[0])
			if err != nil {
				return err
			}
			// The engine must use the coordinator the diagram was built with.
			cfg := c.cfg
			cfg.Coordinator = snap.Header.Coordinator
			e, err := tdd.NewEngine(cfg, tdd.WithLogger(c.logger))
			if err != nil {
				return err
			}
			d, err := e.Import(snap)
			if err != nil {
				return err
			}
			return writeResult(cmd, d, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result to a file")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			names, err := s.List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
