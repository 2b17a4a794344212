package cmd

import (
	"github.com/spf13/cobra"
)

var selectAllOutput string

var selectAllCmd = &cobra.Command{
	Use:   "select-all <image>",
	Short: "Select the whole canvas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.all", map[string]any{
			"image":  args[0],
			"output": orImage(selectAllOutput, args[0]),
		})
	},
}

var selectNoneOutput string

var selectNoneCmd = &cobra.Command{
	Use:   "select-none <image>",
	Short: "Clear the selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.none", map[string]any{
			"image":  args[0],
			"output": orImage(selectNoneOutput, args[0]),
		})
	},
}

var invertSelectionOutput string

var invertSelectionCmd = &cobra.Command{
	Use:   "invert-selection <image>",
	Short: "Invert the selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.invert", map[string]any{
			"image":  args[0],
			"output": orImage(invertSelectionOutput, args[0]),
		})
	},
}

var (
	featherRadius float64
	featherOutput string
)

var featherSelectionCmd = &cobra.Command{
	Use:   "feather-selection <image>",
	Short: "Feather the selection edge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.feather", map[string]any{
			"image":  args[0],
			"radius": featherRadius,
			"output": orImage(featherOutput, args[0]),
		})
	},
}

var (
	selRectX      float64
	selRectY      float64
	selRectWidth  float64
	selRectHeight float64
	selRectOutput string
)

var selectRectangleCmd = &cobra.Command{
	Use:   "select-rectangle <image>",
	Short: "Select a rectangular region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.rectangle", map[string]any{
			"image":  args[0],
			"x":      selRectX,
			"y":      selRectY,
			"width":  selRectWidth,
			"height": selRectHeight,
			"output": orImage(selRectOutput, args[0]),
		})
	},
}

var (
	selEllipseX      float64
	selEllipseY      float64
	selEllipseWidth  float64
	selEllipseHeight float64
	selEllipseOutput string
)

var selectEllipseCmd = &cobra.Command{
	Use:   "select-ellipse <image>",
	Short: "Select an elliptical region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "selection.ellipse", map[string]any{
			"image":  args[0],
			"x":      selEllipseX,
			"y":      selEllipseY,
			"width":  selEllipseWidth,
			"height": selEllipseHeight,
			"output": orImage(selEllipseOutput, args[0]),
		})
	},
}

var (
	maskAddIndex  int
	maskAddMode   string
	maskAddOutput string
)

var addLayerMaskCmd = &cobra.Command{
	Use:   "add-layer-mask <image>",
	Short: "Attach a mask to a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "mask.add", map[string]any{
			"image":      args[0],
			"layerIndex": maskAddIndex,
			"mode":       maskAddMode,
			"output":     orImage(maskAddOutput, args[0]),
		})
	},
}

var (
	maskApplyIndex  int
	maskApplyOutput string
)

var applyLayerMaskCmd = &cobra.Command{
	Use:   "apply-layer-mask <image>",
	Short: "Bake a layer mask into its layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "mask.apply", map[string]any{
			"image":      args[0],
			"layerIndex": maskApplyIndex,
			"output":     orImage(maskApplyOutput, args[0]),
		})
	},
}

var (
	addTextText       string
	addTextX          int
	addTextY          int
	addTextFont       string
	addTextSize       float64
	addTextColor      string
	addTextLayerIndex int
	addTextOutput     string
)

var addTextCmd = &cobra.Command{
	Use:   "add-text <image>",
	Short: "Add a text layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]any{
			"image":      args[0],
			"text":       addTextText,
			"x":          addTextX,
			"y":          addTextY,
			"font":       addTextFont,
			"size":       addTextSize,
			"layerIndex": addTextLayerIndex,
			"output":     orImage(addTextOutput, args[0]),
		}
		if addTextColor != "" {
			params["color"] = addTextColor
		}
		return callBridge(cmd, "text.add", params)
	},
}

var (
	updateTextIndex  int
	updateTextText   string
	updateTextOutput string
)

var updateTextCmd = &cobra.Command{
	Use:   "update-text <image>",
	Short: "Replace the contents of a text layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "text.update", map[string]any{
			"image":      args[0],
			"layerIndex": updateTextIndex,
			"text":       updateTextText,
			"output":     orImage(updateTextOutput, args[0]),
		})
	},
}

var (
	strokeWidth      float64
	strokeColor      string
	strokeLayerIndex int
	strokeOutput     string
)

var strokeSelectionCmd = &cobra.Command{
	Use:   "stroke-selection <image>",
	Short: "Paint along the selection boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "annotation.stroke_selection", map[string]any{
			"image":      args[0],
			"width":      strokeWidth,
			"color":      strokeColor,
			"layerIndex": strokeLayerIndex,
			"output":     orImage(strokeOutput, args[0]),
		})
	},
}

func init() {
	selectAllCmd.Flags().StringVar(&selectAllOutput, "output", "", "write to this path instead of editing in place")
	selectNoneCmd.Flags().StringVar(&selectNoneOutput, "output", "", "write to this path instead of editing in place")
	invertSelectionCmd.Flags().StringVar(&invertSelectionOutput, "output", "", "write to this path instead of editing in place")

	featherSelectionCmd.Flags().Float64Var(&featherRadius, "radius", 5, "feather radius in pixels")
	featherSelectionCmd.Flags().StringVar(&featherOutput, "output", "", "write to this path instead of editing in place")
	featherSelectionCmd.MarkFlagRequired("radius")

	selectRectangleCmd.Flags().Float64Var(&selRectX, "x", 0, "left edge")
	selectRectangleCmd.Flags().Float64Var(&selRectY, "y", 0, "top edge")
	selectRectangleCmd.Flags().Float64Var(&selRectWidth, "width", 0, "selection width")
	selectRectangleCmd.Flags().Float64Var(&selRectHeight, "height", 0, "selection height")
	selectRectangleCmd.Flags().StringVar(&selRectOutput, "output", "", "write to this path instead of editing in place")
	selectRectangleCmd.MarkFlagRequired("width")
	selectRectangleCmd.MarkFlagRequired("height")

	selectEllipseCmd.Flags().Float64Var(&selEllipseX, "x", 0, "left edge of the bounding box")
	selectEllipseCmd.Flags().Float64Var(&selEllipseY, "y", 0, "top edge of the bounding box")
	selectEllipseCmd.Flags().Float64Var(&selEllipseWidth, "width", 0, "bounding box width")
	selectEllipseCmd.Flags().Float64Var(&selEllipseHeight, "height", 0, "bounding box height")
	selectEllipseCmd.Flags().StringVar(&selEllipseOutput, "output", "", "write to this path instead of editing in place")
	selectEllipseCmd.MarkFlagRequired("width")
	selectEllipseCmd.MarkFlagRequired("height")

	addLayerMaskCmd.Flags().IntVar(&maskAddIndex, "layer-index", 0, "target layer")
	addLayerMaskCmd.Flags().StringVar(&maskAddMode, "mode", "WHITE", "mask init: WHITE, BLACK, ALPHA, SELECTION or COPY")
	addLayerMaskCmd.Flags().StringVar(&maskAddOutput, "output", "", "write to this path instead of editing in place")
	addLayerMaskCmd.MarkFlagRequired("layer-index")

	applyLayerMaskCmd.Flags().IntVar(&maskApplyIndex, "layer-index", 0, "target layer")
	applyLayerMaskCmd.Flags().StringVar(&maskApplyOutput, "output", "", "write to this path instead of editing in place")
	applyLayerMaskCmd.MarkFlagRequired("layer-index")

	addTextCmd.Flags().StringVar(&addTextText, "text", "", "text to render")
	addTextCmd.Flags().IntVar(&addTextX, "x", 0, "horizontal placement")
	addTextCmd.Flags().IntVar(&addTextY, "y", 0, "vertical placement")
	addTextCmd.Flags().StringVar(&addTextFont, "font", "Sans", "font family")
	addTextCmd.Flags().Float64Var(&addTextSize, "size", 36, "font size in pixels")
	addTextCmd.Flags().StringVar(&addTextColor, "color", "", "text color, e.g. #ff0000")
	addTextCmd.Flags().IntVar(&addTextLayerIndex, "layer-index", 0, "insertion position in the stack")
	addTextCmd.Flags().StringVar(&addTextOutput, "output", "", "write to this path instead of editing in place")
	addTextCmd.MarkFlagRequired("text")

	updateTextCmd.Flags().IntVar(&updateTextIndex, "layer-index", 0, "text layer to edit")
	updateTextCmd.Flags().StringVar(&updateTextText, "text", "", "replacement text")
	updateTextCmd.Flags().StringVar(&updateTextOutput, "output", "", "write to this path instead of editing in place")
	updateTextCmd.MarkFlagRequired("layer-index")
	updateTextCmd.MarkFlagRequired("text")

	strokeSelectionCmd.Flags().Float64Var(&strokeWidth, "width", 1, "stroke width in pixels")
	strokeSelectionCmd.Flags().StringVar(&strokeColor, "color", "#ffffff", "stroke color")
	strokeSelectionCmd.Flags().IntVar(&strokeLayerIndex, "layer-index", 0, "target layer")
	strokeSelectionCmd.Flags().StringVar(&strokeOutput, "output", "", "write to this path instead of editing in place")
	strokeSelectionCmd.MarkFlagRequired("width")

	rootCmd.AddCommand(
		selectAllCmd, selectNoneCmd, invertSelectionCmd, featherSelectionCmd,
		selectRectangleCmd, selectEllipseCmd, addLayerMaskCmd, applyLayerMaskCmd,
		addTextCmd, updateTextCmd, strokeSelectionCmd,
	)
}
