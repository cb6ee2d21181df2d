package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	gpuext "github.com/rangebuild/gpuext-go"
)

var version = "0.1.0"

var outDir string

var rootCmd = &cobra.Command{
	Use:   "gpuext",
	Short: "gpuext - build GPU-accelerated native extension modules",
	Long: `gpuext orchestrates the compilation of mixed C++/CUDA extension modules.

It resolves feature toggles from the environment (WITH_CUDA, TRACE),
auto-discovers an installed CUDA toolkit, routes each source file to the
correct compiler, and links one loadable module.`,
	Version: version,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile and link the extension module",
	Long: `Compile every source in the build plan and link one extension module.

The plan is computed from the environment:

	WITH_CUDA=ON   compile the GPU kernel and link the CUDA runtime
	TRACE=ON       enable trace instrumentation in the host sources
	CUDAHOME=...   override the CUDA toolkit installation root`,
	RunE: runBuild,
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Discover and validate the CUDA toolkit installation",
	RunE: func(cmd *cobra.Command, args []string) error {
		locator := &gpuext.ToolkitLocator{Out: os.Stdout}
		_, err := locator.Locate()
		return err
	},
}

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Show the resolved feature flags",
	Run: func(cmd *cobra.Command, args []string) {
		resolveFlags()
	},
}

func init() {
	buildCmd.Flags().StringVar(&outDir, "out", "build", "directory for objects and the linked module")
	rootCmd.AddCommand(buildCmd, locateCmd, flagsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorstring.Color("[red]Error:[reset] "+err.Error()))
		os.Exit(1)
	}
}

func resolveFlags() (cuda, trace gpuext.FeatureFlag) {
	resolver := &gpuext.FlagResolver{Out: os.Stdout}

	cuda = resolver.Resolve(gpuext.FlagCUDA,
		"Compiling with CUDA support",
		"Compiling without CUDA support. To enable CUDA use:")
	trace = resolver.Resolve(gpuext.FlagTrace,
		"Compiling with trace enabled",
		"Compiling without trace enabled")
	return cuda, trace
}

func runBuild(cmd *cobra.Command, args []string) error {
	cuda, trace := resolveFlags()
	fmt.Println("\n--------------")

	opts := gpuext.PlanOptions{CUDA: cuda, Trace: trace, OutDir: outDir}

	if cuda.Enabled {
		locator := &gpuext.ToolkitLocator{Out: os.Stdout}
		toolkit, err := locator.Locate()
		if err != nil {
			return err
		}
		opts.Toolkit = toolkit
	}

	plan := gpuext.NewBuildPlan(opts)
	toolchain := gpuext.NewExecToolchain(gpuext.DefaultHostCompiler(), plan.IncludeDirs)

	bar := progressbar.NewOptions(len(plan.Sources),
		progressbar.OptionSetDescription("compiling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	assembler := &gpuext.Assembler{
		Toolchain: toolchain,
		OnCompiled: func(gpuext.CompileUnit) {
			_ = bar.Add(1)
		},
	}

	result, err := assembler.Assemble(cmd.Context(), plan)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Println(colorstring.Color("\n[green]Built " + result.ModulePath + "[reset]"))
	return nil
}
