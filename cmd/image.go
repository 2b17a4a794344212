package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

var openCmd = &cobra.Command{
	Use:   "open <image>",
	Short: "Open an image and seed its undo history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.open", map[string]any{"image": args[0]})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Report image dimensions, layers and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.inspect", map[string]any{"image": args[0]})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <image>",
	Short: "Check that an image can be loaded by the engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.validate", map[string]any{"image": args[0]})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <source> <target>",
	Short: "Compare two images by content hash and dimensions",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.diff", map[string]any{"source": args[0], "target": args[1]})
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <image> <output>",
	Short: "Save an image to another path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.save", map[string]any{"image": args[0], "output": args[1]})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <image> <output>",
	Short: "Export an image, converting by the output extension",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.export", map[string]any{"image": args[0], "output": args[1]})
	},
}

var cloneOverwrite bool

var cloneProjectCmd = &cobra.Command{
	Use:   "clone-project <source> <target>",
	Short: "Copy a project file to a new path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.clone", map[string]any{
			"source":    args[0],
			"target":    args[1],
			"overwrite": cloneOverwrite,
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <image> <description>",
	Short: "Record a named restore point in the image history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.snapshot", map[string]any{"image": args[0], "description": args[1]})
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <image>",
	Short: "Restore the image to the previous history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.undo", map[string]any{"image": args[0]})
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo <image>",
	Short: "Re-apply the most recently undone history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.redo", map[string]any{"image": args[0]})
	},
}

var planEditParamsJSON string

var planEditCmd = &cobra.Command{
	Use:   "plan-edit <image> <action>",
	Short: "Resolve an action name to the method the bridge would run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]any
		if err := json.Unmarshal([]byte(planEditParamsJSON), &params); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInvalidInput, "invalid params JSON: %v", err))
		}
		return callBridge(cmd, "project.plan_edit", map[string]any{
			"image":  args[0],
			"action": args[1],
			"params": params,
		})
	},
}

var (
	resizeWidth  int
	resizeHeight int
	resizeOutput string
)

var resizeCmd = &cobra.Command{
	Use:   "resize <image>",
	Short: "Scale an image to new dimensions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.resize", map[string]any{
			"image":  args[0],
			"width":  resizeWidth,
			"height": resizeHeight,
			"output": orImage(resizeOutput, args[0]),
		})
	},
}

var (
	cropX      int
	cropY      int
	cropWidth  int
	cropHeight int
	cropOutput string
)

var cropCmd = &cobra.Command{
	Use:   "crop <image>",
	Short: "Crop an image to a rectangle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.crop", map[string]any{
			"image":  args[0],
			"x":      cropX,
			"y":      cropY,
			"width":  cropWidth,
			"height": cropHeight,
			"output": orImage(cropOutput, args[0]),
		})
	},
}

var (
	cropCenterWidth  int
	cropCenterHeight int
	cropCenterOutput string
)

var cropCenterCmd = &cobra.Command{
	Use:   "crop-center <image>",
	Short: "Crop a centered rectangle out of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.crop_center", map[string]any{
			"image":  args[0],
			"width":  cropCenterWidth,
			"height": cropCenterHeight,
			"output": orImage(cropCenterOutput, args[0]),
		})
	},
}

var (
	rotateDegrees int
	rotateOutput  string
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <image>",
	Short: "Rotate an image by 90, 180 or 270 degrees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.rotate", map[string]any{
			"image":   args[0],
			"degrees": rotateDegrees,
			"output":  orImage(rotateOutput, args[0]),
		})
	},
}

var (
	flipAxis   string
	flipOutput string
)

var flipCmd = &cobra.Command{
	Use:   "flip <image>",
	Short: "Mirror an image horizontally or vertically",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.flip", map[string]any{
			"image":  args[0],
			"axis":   flipAxis,
			"output": orImage(flipOutput, args[0]),
		})
	},
}

var (
	canvasWidth   int
	canvasHeight  int
	canvasOffsetX int
	canvasOffsetY int
	canvasOutput  string
)

var canvasSizeCmd = &cobra.Command{
	Use:   "canvas-size <image>",
	Short: "Resize the canvas without scaling the content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "image.canvas_size", map[string]any{
			"image":   args[0],
			"width":   canvasWidth,
			"height":  canvasHeight,
			"offsetX": canvasOffsetX,
			"offsetY": canvasOffsetY,
			"output":  orImage(canvasOutput, args[0]),
		})
	},
}

func init() {
	cloneProjectCmd.Flags().BoolVar(&cloneOverwrite, "overwrite", false, "replace the target if it exists")

	planEditCmd.Flags().StringVar(&planEditParamsJSON, "params-json", "{}", "JSON object with action parameters")

	resizeCmd.Flags().IntVar(&resizeWidth, "width", 0, "target width in pixels")
	resizeCmd.Flags().IntVar(&resizeHeight, "height", 0, "target height in pixels")
	resizeCmd.Flags().StringVar(&resizeOutput, "output", "", "write to this path instead of editing in place")
	resizeCmd.MarkFlagRequired("width")
	resizeCmd.MarkFlagRequired("height")

	cropCmd.Flags().IntVar(&cropX, "x", 0, "left edge of the crop rectangle")
	cropCmd.Flags().IntVar(&cropY, "y", 0, "top edge of the crop rectangle")
	cropCmd.Flags().IntVar(&cropWidth, "width", 0, "crop width in pixels")
	cropCmd.Flags().IntVar(&cropHeight, "height", 0, "crop height in pixels")
	cropCmd.Flags().StringVar(&cropOutput, "output", "", "write to this path instead of editing in place")
	cropCmd.MarkFlagRequired("width")
	cropCmd.MarkFlagRequired("height")

	cropCenterCmd.Flags().IntVar(&cropCenterWidth, "width", 0, "crop width in pixels")
	cropCenterCmd.Flags().IntVar(&cropCenterHeight, "height", 0, "crop height in pixels")
	cropCenterCmd.Flags().StringVar(&cropCenterOutput, "output", "", "write to this path instead of editing in place")
	cropCenterCmd.MarkFlagRequired("width")
	cropCenterCmd.MarkFlagRequired("height")

	rotateCmd.Flags().IntVar(&rotateDegrees, "degrees", 0, "rotation in degrees")
	rotateCmd.Flags().StringVar(&rotateOutput, "output", "", "write to this path instead of editing in place")
	rotateCmd.MarkFlagRequired("degrees")

	flipCmd.Flags().StringVar(&flipAxis, "axis", "horizontal", "mirror axis: horizontal or vertical")
	flipCmd.Flags().StringVar(&flipOutput, "output", "", "write to this path instead of editing in place")

	canvasSizeCmd.Flags().IntVar(&canvasWidth, "width", 0, "new canvas width")
	canvasSizeCmd.Flags().IntVar(&canvasHeight, "height", 0, "new canvas height")
	canvasSizeCmd.Flags().IntVar(&canvasOffsetX, "offset-x", 0, "content offset from the left edge")
	canvasSizeCmd.Flags().IntVar(&canvasOffsetY, "offset-y", 0, "content offset from the top edge")
	canvasSizeCmd.Flags().StringVar(&canvasOutput, "output", "", "write to this path instead of editing in place")
	canvasSizeCmd.MarkFlagRequired("width")
	canvasSizeCmd.MarkFlagRequired("height")

	rootCmd.AddCommand(
		openCmd, inspectCmd, validateCmd, diffCmd, saveCmd, exportCmd,
		cloneProjectCmd, snapshotCmd, undoCmd, redoCmd, planEditCmd,
		resizeCmd, cropCmd, cropCenterCmd, rotateCmd, flipCmd, canvasSizeCmd,
	)
}
