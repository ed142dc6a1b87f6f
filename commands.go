package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/chazu/isocurve/pkg/compute"
	"github.com/chazu/isocurve/pkg/document"
)

const version = "v0.1.0"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	device   string
	output   string
	debug    bool
	validate bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use: "isocurve",
		Short: color.RGB(50, 108, 229).Sprintf("isocurve [global options] <subcommand> [args]") + "\n" +
			"Compile parametric geometry node graphs into compute kernels",
		Long: color.RGB(50, 108, 229).Sprintf("Usage: isocurve [global options] <subcommand> [args]\n\n") +
			"isocurve compiles a node graph of intervals, curves, surfaces, matrices\n" +
			"and renderers into WGSL compute kernels and runs them on a device.\n" +
			"Graphs are read from Lisp source or from YAML documents.\n",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVar(&opts.device, "device", "software", "Device to run kernels on. One of: (software | wgpu)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format. One of: (json | yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log builds and runs at debug level")
	cmd.PersistentFlags().BoolVar(&opts.validate, "validate", false, "Compile every generated kernel with naga")

	cmd.AddCommand(
		newBuildCommand(opts),
		newRunCommand(opts),
		newKernelsCommand(opts),
		newConvertCommand(opts),
	)
	setUsageTemplate(cmd)
	return cmd
}

func setUsageTemplate(cmd *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usage := strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(cmd.UsageTemplate())
	cmd.SetUsageTemplate(usage)
	cmd.SetVersionTemplate("{{.Version}}\n")
}

func execute(args []string) error {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
	cmd := newRootCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

// session is an App opened for one command.
type session struct {
	app   *App
	state compute.UserState
}

func (o *rootOptions) open(cmd *cobra.Command, path string) (*session, func(), error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), o.debug)
	dev, err := openDevice(o.device, log)
	if err != nil {
		return nil, nil, err
	}
	app, err := NewApp(dev, log)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	app.validate = o.validate
	state, evalErrs, err := app.Load(path, source)
	if err == nil && len(evalErrs) > 0 {
		err = sourceError(path, evalErrs)
	}
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return &session{app: app, state: state}, func() { dev.Close() }, nil
}

func sourceError(path string, errs []EvalErrorData) error {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = fmt.Sprintf("%s:%d:%d: %s", path, e.Line, e.Col, e.Message)
	}
	return fmt.Errorf("evaluating source:\n%s", strings.Join(lines, "\n"))
}

// write prints v in the requested format, or calls human when no format
// was given.
func (o *rootOptions) write(w io.Writer, v any, human func(io.Writer)) error {
	switch strings.ToLower(o.output) {
	case "":
		human(w)
		return nil
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("invalid output format %q", o.output)
}

// BuildReport is what the build command prints.
type BuildReport struct {
	Nodes      int      `json:"nodes"`
	Operations int      `json:"operations"`
	Kernels    []string `json:"kernels"`
	// Diagnostics are the structural findings of the graph checks.
	Diagnostics []string `json:"diagnostics,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

func newBuildCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a graph and report its kernels and node errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			findings := s.app.Diagnose(s.state)
			cg, errs, err := s.app.Compile(s.state)
			if err != nil {
				return err
			}
			defer cg.Close()

			r := BuildReport{Nodes: len(cg.Order()), Operations: len(cg.Operations())}
			for _, f := range findings {
				r.Diagnostics = append(r.Diagnostics, f.Error())
			}
			for _, k := range cg.Kernels() {
				r.Kernels = append(r.Kernels, k.Key.String())
			}
			for _, e := range errs {
				r.Errors = append(r.Errors, e.Error())
			}
			return opts.write(cmd.OutOrStdout(), r, func(w io.Writer) {
				fmt.Fprintf(w, "%s %d nodes, %d operations, %d kernels\n",
					okStyle("Built"), r.Nodes, r.Operations, len(r.Kernels))
				for _, k := range r.Kernels {
					fmt.Fprintf(w, "  %s\n", k)
				}
				for _, d := range r.Diagnostics {
					fmt.Fprintf(w, "%s %s\n", warnStyle("check:"), d)
				}
				for _, e := range r.Errors {
					fmt.Fprintf(w, "%s %s\n", warnStyle("warning:"), e)
				}
			})
		},
	}
}

// parseSet parses name=value overrides.
func parseSet(pairs []string) ([]compute.Variable, error) {
	vars := make([]compute.Variable, 0, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", p, err)
		}
		vars = append(vars, compute.Variable{Name: name, Value: float32(f)})
	}
	return vars, nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		set    []string
		limit  int
		meshes bool
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Build and run a graph, then print every node result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseSet(set)
			if err != nil {
				return err
			}
			s, done, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			cg, _, err := s.app.Run(cmd.Context(), s.state, overrides)
			if err != nil {
				return err
			}
			defer cg.Close()

			r, err := newReport(s.app, cg, s.state.Graph, limit, meshes)
			if err != nil {
				return err
			}
			return opts.write(cmd.OutOrStdout(), r, r.writeHuman)
		},
	}
	cmd.Flags().StringArrayVar(&set, "set", nil, "Override a global after the first run (name=value)")
	cmd.Flags().IntVar(&limit, "head", 4, "Number of elements to print per node")
	cmd.Flags().BoolVar(&meshes, "meshes", false, "Include rendered meshes in the output")
	return cmd
}

// kernelFile names the file a kernel is written to. Shapes carry
// expression text, so only the kind and hash are used.
func kernelFile(k compute.Kernel) string {
	return fmt.Sprintf("%s_%x.wgsl", k.Key.Kind, k.Key.Hash[:6])
}

func newKernelsCommand(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "kernels <file>",
		Short: "Print or write the WGSL source of every kernel of a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			cg, _, err := s.app.Compile(s.state)
			if err != nil {
				return err
			}
			defer cg.Close()

			w := cmd.OutOrStdout()
			for _, k := range cg.Kernels() {
				if dir == "" {
					fmt.Fprintf(w, "// %s (%s)\n%s\n", headingStyle(k.Key.String()), k.Node, k.Source)
					continue
				}
				path := filepath.Join(dir, kernelFile(k))
				if err := os.WriteFile(path, []byte(k.Source), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(w, path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Write one .wgsl file per kernel into this directory")
	return cmd
}

func newConvertCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert Lisp source into a YAML graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := opts.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer done()
			doc, err := document.FromState(s.state)
			if err != nil {
				return err
			}
			if file != "" {
				return doc.WriteFile(file)
			}
			data, err := doc.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write the document to this file instead of stdout")
	return cmd
}
