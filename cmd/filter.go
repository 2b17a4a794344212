package cmd

import (
	"github.com/spf13/cobra"
)

var (
	blurRadius     float64
	blurLayerIndex int
	blurOutput     string
)

var blurCmd = &cobra.Command{
	Use:   "blur <image>",
	Short: "Apply a simple blur",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "filter.blur", map[string]any{
			"image":      args[0],
			"radius":     blurRadius,
			"layerIndex": blurLayerIndex,
			"output":     orImage(blurOutput, args[0]),
		})
	},
}

var (
	gaussRadiusX    float64
	gaussRadiusY    float64
	gaussLayerIndex int
	gaussOutput     string
)

var gaussianBlurCmd = &cobra.Command{
	Use:   "gaussian-blur <image>",
	Short: "Apply a gaussian blur with independent radii",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]any{
			"image":      args[0],
			"radiusX":    gaussRadiusX,
			"layerIndex": gaussLayerIndex,
			"output":     orImage(gaussOutput, args[0]),
		}
		// radiusY tracks radiusX unless set explicitly.
		if cmd.Flags().Changed("radius-y") {
			params["radiusY"] = gaussRadiusY
		} else {
			params["radiusY"] = gaussRadiusX
		}
		return callBridge(cmd, "filter.gaussian_blur", params)
	},
}

var (
	sharpenRadius     float64
	sharpenAmount     float64
	sharpenLayerIndex int
	sharpenOutput     string
)

var sharpenCmd = &cobra.Command{
	Use:   "sharpen <image>",
	Short: "Sharpen a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "filter.sharpen", map[string]any{
			"image":      args[0],
			"radius":     sharpenRadius,
			"amount":     sharpenAmount,
			"layerIndex": sharpenLayerIndex,
			"output":     orImage(sharpenOutput, args[0]),
		})
	},
}

var (
	usmRadius     float64
	usmAmount     float64
	usmThreshold  float64
	usmLayerIndex int
	usmOutput     string
)

var unsharpMaskCmd = &cobra.Command{
	Use:   "unsharp-mask <image>",
	Short: "Sharpen via unsharp masking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "filter.unsharp_mask", map[string]any{
			"image":      args[0],
			"radius":     usmRadius,
			"amount":     usmAmount,
			"threshold":  usmThreshold,
			"layerIndex": usmLayerIndex,
			"output":     orImage(usmOutput, args[0]),
		})
	},
}

var (
	noiseStrength   int
	noiseLayerIndex int
	noiseOutput     string
)

var noiseReductionCmd = &cobra.Command{
	Use:   "noise-reduction <image>",
	Short: "Reduce noise on a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "filter.noise_reduction", map[string]any{
			"image":      args[0],
			"strength":   noiseStrength,
			"layerIndex": noiseLayerIndex,
			"output":     orImage(noiseOutput, args[0]),
		})
	},
}

func init() {
	blurCmd.Flags().Float64Var(&blurRadius, "radius", 4, "blur radius in pixels")
	blurCmd.Flags().IntVar(&blurLayerIndex, "layer-index", 0, "target layer")
	blurCmd.Flags().StringVar(&blurOutput, "output", "", "write to this path instead of editing in place")

	gaussianBlurCmd.Flags().Float64Var(&gaussRadiusX, "radius-x", 4, "horizontal blur radius")
	gaussianBlurCmd.Flags().Float64Var(&gaussRadiusY, "radius-y", 4, "vertical blur radius (defaults to --radius-x)")
	gaussianBlurCmd.Flags().IntVar(&gaussLayerIndex, "layer-index", 0, "target layer")
	gaussianBlurCmd.Flags().StringVar(&gaussOutput, "output", "", "write to this path instead of editing in place")

	sharpenCmd.Flags().Float64Var(&sharpenRadius, "radius", 2, "sharpen radius")
	sharpenCmd.Flags().Float64Var(&sharpenAmount, "amount", 1, "sharpen strength")
	sharpenCmd.Flags().IntVar(&sharpenLayerIndex, "layer-index", 0, "target layer")
	sharpenCmd.Flags().StringVar(&sharpenOutput, "output", "", "write to this path instead of editing in place")

	unsharpMaskCmd.Flags().Float64Var(&usmRadius, "radius", 2, "mask radius")
	unsharpMaskCmd.Flags().Float64Var(&usmAmount, "amount", 1, "mask strength")
	unsharpMaskCmd.Flags().Float64Var(&usmThreshold, "threshold", 0, "edge threshold")
	unsharpMaskCmd.Flags().IntVar(&usmLayerIndex, "layer-index", 0, "target layer")
	unsharpMaskCmd.Flags().StringVar(&usmOutput, "output", "", "write to this path instead of editing in place")

	noiseReductionCmd.Flags().IntVar(&noiseStrength, "strength", 3, "reduction strength")
	noiseReductionCmd.Flags().IntVar(&noiseLayerIndex, "layer-index", 0, "target layer")
	noiseReductionCmd.Flags().StringVar(&noiseOutput, "output", "", "write to this path instead of editing in place")

	rootCmd.AddCommand(blurCmd, gaussianBlurCmd, sharpenCmd, unsharpMaskCmd, noiseReductionCmd)
}
