package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

var (
	bcBrightness float64
	bcContrast   float64
	bcLayerIndex int
	bcOutput     string
)

var brightnessContrastCmd = &cobra.Command{
	Use:   "brightness-contrast <image>",
	Short: "Adjust brightness and contrast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.brightness_contrast", map[string]any{
			"image":      args[0],
			"brightness": bcBrightness,
			"contrast":   bcContrast,
			"layerIndex": bcLayerIndex,
			"output":     orImage(bcOutput, args[0]),
		})
	},
}

var (
	levelsBlack      float64
	levelsWhite      float64
	levelsGamma      float64
	levelsLayerIndex int
	levelsOutput     string
)

var levelsCmd = &cobra.Command{
	Use:   "levels <image>",
	Short: "Remap tonal range with black point, white point and gamma",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.levels", map[string]any{
			"image":      args[0],
			"black":      levelsBlack,
			"white":      levelsWhite,
			"gamma":      levelsGamma,
			"layerIndex": levelsLayerIndex,
			"output":     orImage(levelsOutput, args[0]),
		})
	},
}

var (
	curvesChannel    string
	curvesPointsJSON string
	curvesLayerIndex int
	curvesOutput     string
)

var curvesCmd = &cobra.Command{
	Use:   "curves <image>",
	Short: "Apply a curve adjustment from control points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var points []any
		if err := json.Unmarshal([]byte(curvesPointsJSON), &points); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInvalidInput, "invalid points JSON: %v", err))
		}
		return callBridge(cmd, "adjust.curves", map[string]any{
			"image":      args[0],
			"channel":    curvesChannel,
			"points":     points,
			"layerIndex": curvesLayerIndex,
			"output":     orImage(curvesOutput, args[0]),
		})
	},
}

var (
	hsHue        float64
	hsSaturation float64
	hsLightness  float64
	hsLayerIndex int
	hsOutput     string
)

var hueSaturationCmd = &cobra.Command{
	Use:   "hue-saturation <image>",
	Short: "Shift hue, saturation and lightness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.hue_saturation", map[string]any{
			"image":      args[0],
			"hue":        hsHue,
			"saturation": hsSaturation,
			"lightness":  hsLightness,
			"layerIndex": hsLayerIndex,
			"output":     orImage(hsOutput, args[0]),
		})
	},
}

var (
	cbTransferMode string
	cbCyanRed      float64
	cbMagentaGreen float64
	cbYellowBlue   float64
	cbLayerIndex   int
	cbOutput       string
)

var colorBalanceCmd = &cobra.Command{
	Use:   "color-balance <image>",
	Short: "Shift color balance per tonal range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.color_balance", map[string]any{
			"image":        args[0],
			"transferMode": cbTransferMode,
			"cyanRed":      cbCyanRed,
			"magentaGreen": cbMagentaGreen,
			"yellowBlue":   cbYellowBlue,
			"layerIndex":   cbLayerIndex,
			"output":       orImage(cbOutput, args[0]),
		})
	},
}

var (
	ctTemperature float64
	ctLayerIndex  int
	ctOutput      string
)

var colorTemperatureCmd = &cobra.Command{
	Use:   "color-temperature <image>",
	Short: "Warm or cool an image toward a target temperature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.color_temperature", map[string]any{
			"image":       args[0],
			"temperature": ctTemperature,
			"layerIndex":  ctLayerIndex,
			"output":      orImage(ctOutput, args[0]),
		})
	},
}

var (
	invertLayerIndex int
	invertOutput     string
)

var invertCmd = &cobra.Command{
	Use:   "invert <image>",
	Short: "Invert colors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.invert", map[string]any{
			"image":      args[0],
			"layerIndex": invertLayerIndex,
			"output":     orImage(invertOutput, args[0]),
		})
	},
}

var (
	desaturateMode       string
	desaturateLayerIndex int
	desaturateOutput     string
)

var desaturateCmd = &cobra.Command{
	Use:   "desaturate <image>",
	Short: "Convert a layer to grayscale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "adjust.desaturate", map[string]any{
			"image":      args[0],
			"mode":       desaturateMode,
			"layerIndex": desaturateLayerIndex,
			"output":     orImage(desaturateOutput, args[0]),
		})
	},
}

func init() {
	brightnessContrastCmd.Flags().Float64Var(&bcBrightness, "brightness", 0, "brightness delta, -127 to 127")
	brightnessContrastCmd.Flags().Float64Var(&bcContrast, "contrast", 0, "contrast delta, -127 to 127")
	brightnessContrastCmd.Flags().IntVar(&bcLayerIndex, "layer-index", 0, "target layer")
	brightnessContrastCmd.Flags().StringVar(&bcOutput, "output", "", "write to this path instead of editing in place")

	levelsCmd.Flags().Float64Var(&levelsBlack, "black", 0, "input black point")
	levelsCmd.Flags().Float64Var(&levelsWhite, "white", 255, "input white point")
	levelsCmd.Flags().Float64Var(&levelsGamma, "gamma", 1, "gamma correction")
	levelsCmd.Flags().IntVar(&levelsLayerIndex, "layer-index", 0, "target layer")
	levelsCmd.Flags().StringVar(&levelsOutput, "output", "", "write to this path instead of editing in place")

	curvesCmd.Flags().StringVar(&curvesChannel, "channel", "value", "channel: value, red, green, blue or alpha")
	curvesCmd.Flags().StringVar(&curvesPointsJSON, "points-json", "", "JSON list of [input, output] control points")
	curvesCmd.Flags().IntVar(&curvesLayerIndex, "layer-index", 0, "target layer")
	curvesCmd.Flags().StringVar(&curvesOutput, "output", "", "write to this path instead of editing in place")
	curvesCmd.MarkFlagRequired("points-json")

	hueSaturationCmd.Flags().Float64Var(&hsHue, "hue", 0, "hue shift in degrees")
	hueSaturationCmd.Flags().Float64Var(&hsSaturation, "saturation", 0, "saturation delta")
	hueSaturationCmd.Flags().Float64Var(&hsLightness, "lightness", 0, "lightness delta")
	hueSaturationCmd.Flags().IntVar(&hsLayerIndex, "layer-index", 0, "target layer")
	hueSaturationCmd.Flags().StringVar(&hsOutput, "output", "", "write to this path instead of editing in place")

	colorBalanceCmd.Flags().StringVar(&cbTransferMode, "transfer-mode", "MIDTONES", "tonal range: SHADOWS, MIDTONES or HIGHLIGHTS")
	colorBalanceCmd.Flags().Float64Var(&cbCyanRed, "cyan-red", 0, "cyan-red shift")
	colorBalanceCmd.Flags().Float64Var(&cbMagentaGreen, "magenta-green", 0, "magenta-green shift")
	colorBalanceCmd.Flags().Float64Var(&cbYellowBlue, "yellow-blue", 0, "yellow-blue shift")
	colorBalanceCmd.Flags().IntVar(&cbLayerIndex, "layer-index", 0, "target layer")
	colorBalanceCmd.Flags().StringVar(&cbOutput, "output", "", "write to this path instead of editing in place")

	colorTemperatureCmd.Flags().Float64Var(&ctTemperature, "temperature", 6500, "target temperature in kelvin")
	colorTemperatureCmd.Flags().IntVar(&ctLayerIndex, "layer-index", 0, "target layer")
	colorTemperatureCmd.Flags().StringVar(&ctOutput, "output", "", "write to this path instead of editing in place")

	invertCmd.Flags().IntVar(&invertLayerIndex, "layer-index", 0, "target layer")
	invertCmd.Flags().StringVar(&invertOutput, "output", "", "write to this path instead of editing in place")

	desaturateCmd.Flags().StringVar(&desaturateMode, "mode", "luma", "grayscale mode: luma, average or lightness")
	desaturateCmd.Flags().IntVar(&desaturateLayerIndex, "layer-index", 0, "target layer")
	desaturateCmd.Flags().StringVar(&desaturateOutput, "output", "", "write to this path instead of editing in place")

	rootCmd.AddCommand(
		brightnessContrastCmd, levelsCmd, curvesCmd, hueSaturationCmd,
		colorBalanceCmd, colorTemperatureCmd, invertCmd, desaturateCmd,
	)
}
