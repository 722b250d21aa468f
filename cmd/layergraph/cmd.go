package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/layergraph/compute"
	"github.com/born-ml/layergraph/data"
	"github.com/born-ml/layergraph/graph"
	"github.com/born-ml/layergraph/internal/envconfig"
	"github.com/born-ml/layergraph/nn"
	"github.com/born-ml/layergraph/optim"
	"github.com/born-ml/layergraph/tensor"
)

const version = "v0.1.0-dev"

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}
	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI creates the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "layergraph",
		Short:         "Layer graph training and inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	demoCmd := newDemoCmd()
	envVars := envconfig.AsMap()
	appendEnvDocs(demoCmd, []envconfig.EnvVar{
		envVars["LAYERGRAPH_DEBUG"],
		envVars["LAYERGRAPH_DEVICE"],
		envVars["LAYERGRAPH_NUM_THREADS"],
	})

	rootCmd.AddCommand(
		newVersionCmd(),
		newDevicesCmd(),
		newEnvCmd(),
		demoCmd,
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("layergraph %s\n", version)
		},
	}
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List compute devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, d := range compute.Devices() {
				cmd.Printf("%-4s %-40s threads=%d\n", d.Kind(), d.Name(), d.Threads())
				if features := d.Features(); len(features) > 0 {
					cmd.Printf("     features: %s\n", strings.Join(features, " "))
				}
			}
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show configuration from the environment",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			vars := envconfig.AsMap()
			names := make([]string, 0, len(vars))
			for name := range vars {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				cmd.Printf("%s=%v\n", name, vars[name].Value)
			}
		},
	}
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Train a small network on XOR and print its predictions",
		Args:  cobra.NoArgs,
		RunE:  demoHandler,
	}
	cmd.Flags().String("device", envconfig.Device(), "Device kind: cpu, gpu or any")
	cmd.Flags().Int("iterations", 500, "Training iterations over the dataset")
	cmd.Flags().Int("batch", 1, "Examples per batch (must divide 4)")
	return cmd
}

var xorPoints = [4][3]float32{
	{0, 0, 0},
	{0, 1, 1},
	{1, 0, 1},
	{1, 1, 0},
}

func xorData() (*data.TrainingData, error) {
	var inputs, targets []*tensor.Tensor
	for _, p := range xorPoints {
		x, err := tensor.FromSlice(p[:2], tensor.NewShape(2, 1, 1))
		if err != nil {
			return nil, err
		}
		y, err := tensor.FromSlice(p[2:], tensor.NewShape(1, 1, 1))
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, x)
		targets = append(targets, y)
	}
	return data.New(inputs, targets)
}

func demoHandler(cmd *cobra.Command, _ []string) error {
	deviceFlag, _ := cmd.Flags().GetString("device")
	iterations, _ := cmd.Flags().GetInt("iterations")
	batch, _ := cmd.Flags().GetInt("batch")

	kind, err := compute.ParseDeviceKind(deviceFlag)
	if err != nil {
		return err
	}

	d, err := xorData()
	if err != nil {
		return err
	}
	if batch > 1 {
		if d, err = d.Autobatch(batch); err != nil {
			return err
		}
	}

	cfg := optim.DefaultAdamConfig()
	cmd.Printf("optimizer: adam lr=%g betas=%v eps=%g regularization=%v\n", cfg.LR, cfg.Betas, cfg.Eps, cfg.Regularization)

	g := graph.New(
		nn.NewFullyConnected(8),
		nn.NewActivation(compute.Tanh),
		nn.NewFullyConnected(1),
		nn.NewActivation(compute.Sigmoid),
	)
	err = g.Train(d, iterations, kind, func(out *tensor.Tensor) {
		cmd.Printf("final step output: %v\n", out.Data())
	})
	if err != nil {
		return err
	}

	for _, p := range xorPoints {
		x, err := tensor.FromSlice(p[:2], tensor.NewShape(2, 1, 1))
		if err != nil {
			return err
		}
		y, err := g.Infer(x, kind, true)
		if err != nil {
			return err
		}
		cmd.Printf("%v xor %v = %.3f (want %v)\n", p[0], p[1], y.At(0, 0, 0), p[2])
	}
	return nil
}
