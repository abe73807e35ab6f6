package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-sod/sod/internal/csvio"
	"github.com/go-sod/sod/internal/dataset"
)

func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic point cloud as CSV",
		Long: `Write Gaussian blobs around every --center plus uniform noise drawn from
the box [--low, --high]. The same seed always gives the same file.`,
		RunE: runGenerate,
	}
	flags := generateCmd.Flags()
	flags.StringArray("center", []string{"-2,-2", "2,2"}, "Blob center as comma separated coordinates, repeatable")
	flags.Int("points", 100, "Points per blob")
	flags.Float64("std", 0.5, "Standard deviation of every blob")
	flags.Int("noise", 10, "Uniform noise points")
	flags.Float64("low", -6, "Lower bound of the noise box")
	flags.Float64("high", 6, "Upper bound of the noise box")
	flags.Uint32("seed", 1, "Random seed")
	flags.Bool("shuffle", true, "Shuffle blob and noise points together")
	flags.StringP("output", "o", "-", "Output CSV file, - for stdout")

	return generateCmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	rawCenters, _ := flags.GetStringArray("center")
	centers, err := parseCenters(rawCenters)
	if err != nil {
		return err
	}
	n, _ := flags.GetInt("points")
	std, _ := flags.GetFloat64("std")
	noise, _ := flags.GetInt("noise")
	low, _ := flags.GetFloat64("low")
	high, _ := flags.GetFloat64("high")
	seed, _ := flags.GetUint32("seed")
	shuffle, _ := flags.GetBool("shuffle")
	if n < 0 || noise < 0 {
		return fmt.Errorf("point counts must not be negative")
	}
	if low > high {
		return fmt.Errorf("low %g is above high %g", low, high)
	}

	g := dataset.NewGenerator(seed)
	var points [][]float64
	for _, center := range centers {
		points = append(points, g.Blob(n, center, std)...)
	}
	points = append(points, g.Box(noise, len(centers[0]), low, high)...)
	if shuffle {
		g.Shuffle(points)
	}

	out, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer closeOut()
	return csvio.WritePoints(out, columnNames(len(centers[0])), points)
}

// parseCenters parses "x,y,..." coordinates. Every center must have the
// same dimension.
func parseCenters(raw []string) ([][]float64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one center is required")
	}
	centers := make([][]float64, 0, len(raw))
	for _, r := range raw {
		fields := strings.Split(r, ",")
		center := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("unable parse center %q: %w", r, err)
			}
			center[i] = v
		}
		if len(centers) > 0 && len(center) != len(centers[0]) {
			return nil, fmt.Errorf("center %q has %d dimensions, want %d", r, len(center), len(centers[0]))
		}
		centers = append(centers, center)
	}
	return centers, nil
}

func columnNames(dim int) []string {
	names := make([]string, dim)
	for i := range names {
		names[i] = "x" + strconv.Itoa(i)
	}
	return names
}
