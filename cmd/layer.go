package cmd

import (
	"github.com/spf13/cobra"
)

var layerListCmd = &cobra.Command{
	Use:   "layer-list <image>",
	Short: "List the layers of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.list", map[string]any{"image": args[0]})
	},
}

var (
	layerAddName     string
	layerAddPosition int
	layerAddOutput   string
)

var layerAddCmd = &cobra.Command{
	Use:   "layer-add <image>",
	Short: "Insert a new transparent layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.add", map[string]any{
			"image":    args[0],
			"name":     layerAddName,
			"position": layerAddPosition,
			"output":   orImage(layerAddOutput, args[0]),
		})
	},
}

var (
	layerRemoveIndex  int
	layerRemoveOutput string
)

var layerRemoveCmd = &cobra.Command{
	Use:   "layer-remove <image>",
	Short: "Delete a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.remove", map[string]any{
			"image":      args[0],
			"layerIndex": layerRemoveIndex,
			"output":     orImage(layerRemoveOutput, args[0]),
		})
	},
}

var (
	layerRenameIndex  int
	layerRenameName   string
	layerRenameOutput string
)

var layerRenameCmd = &cobra.Command{
	Use:   "layer-rename <image>",
	Short: "Rename a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.rename", map[string]any{
			"image":      args[0],
			"layerIndex": layerRenameIndex,
			"name":       layerRenameName,
			"output":     orImage(layerRenameOutput, args[0]),
		})
	},
}

var (
	layerOpacityIndex  int
	layerOpacityValue  float64
	layerOpacityOutput string
)

var layerOpacityCmd = &cobra.Command{
	Use:   "layer-opacity <image>",
	Short: "Set layer opacity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.opacity", map[string]any{
			"image":      args[0],
			"layerIndex": layerOpacityIndex,
			"opacity":    layerOpacityValue,
			"output":     orImage(layerOpacityOutput, args[0]),
		})
	},
}

var (
	layerBlendIndex  int
	layerBlendMode   string
	layerBlendOutput string
)

var layerBlendModeCmd = &cobra.Command{
	Use:   "layer-blend-mode <image>",
	Short: "Set the blend mode of a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.blend_mode", map[string]any{
			"image":      args[0],
			"layerIndex": layerBlendIndex,
			"mode":       layerBlendMode,
			"output":     orImage(layerBlendOutput, args[0]),
		})
	},
}

var (
	layerDupIndex    int
	layerDupPosition int
	layerDupOutput   string
)

var layerDuplicateCmd = &cobra.Command{
	Use:   "layer-duplicate <image>",
	Short: "Duplicate a layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.duplicate", map[string]any{
			"image":      args[0],
			"layerIndex": layerDupIndex,
			"position":   layerDupPosition,
			"output":     orImage(layerDupOutput, args[0]),
		})
	},
}

var (
	layerMergeIndex  int
	layerMergeOutput string
)

var layerMergeDownCmd = &cobra.Command{
	Use:   "layer-merge-down <image>",
	Short: "Merge a layer into the one below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.merge_down", map[string]any{
			"image":      args[0],
			"layerIndex": layerMergeIndex,
			"output":     orImage(layerMergeOutput, args[0]),
		})
	},
}

var (
	layerReorderIndex  int
	layerReorderTarget int
	layerReorderOutput string
)

var layerReorderCmd = &cobra.Command{
	Use:   "layer-reorder <image>",
	Short: "Move a layer to a new stack position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "layer.reorder", map[string]any{
			"image":      args[0],
			"layerIndex": layerReorderIndex,
			"index":      layerReorderTarget,
			"output":     orImage(layerReorderOutput, args[0]),
		})
	},
}

func init() {
	layerAddCmd.Flags().StringVar(&layerAddName, "name", "", "layer name")
	layerAddCmd.Flags().IntVar(&layerAddPosition, "position", 0, "stack position for the new layer")
	layerAddCmd.Flags().StringVar(&layerAddOutput, "output", "", "write to this path instead of editing in place")
	layerAddCmd.MarkFlagRequired("name")

	layerRemoveCmd.Flags().IntVar(&layerRemoveIndex, "layer-index", 0, "layer to remove")
	layerRemoveCmd.Flags().StringVar(&layerRemoveOutput, "output", "", "write to this path instead of editing in place")
	layerRemoveCmd.MarkFlagRequired("layer-index")

	layerRenameCmd.Flags().IntVar(&layerRenameIndex, "layer-index", 0, "layer to rename")
	layerRenameCmd.Flags().StringVar(&layerRenameName, "name", "", "new layer name")
	layerRenameCmd.Flags().StringVar(&layerRenameOutput, "output", "", "write to this path instead of editing in place")
	layerRenameCmd.MarkFlagRequired("layer-index")
	layerRenameCmd.MarkFlagRequired("name")

	layerOpacityCmd.Flags().IntVar(&layerOpacityIndex, "layer-index", 0, "target layer")
	layerOpacityCmd.Flags().Float64Var(&layerOpacityValue, "opacity", 0, "opacity, 0 to 100")
	layerOpacityCmd.Flags().StringVar(&layerOpacityOutput, "output", "", "write to this path instead of editing in place")
	layerOpacityCmd.MarkFlagRequired("layer-index")
	layerOpacityCmd.MarkFlagRequired("opacity")

	layerBlendModeCmd.Flags().IntVar(&layerBlendIndex, "layer-index", 0, "target layer")
	layerBlendModeCmd.Flags().StringVar(&layerBlendMode, "mode", "", "blend mode name")
	layerBlendModeCmd.Flags().StringVar(&layerBlendOutput, "output", "", "write to this path instead of editing in place")
	layerBlendModeCmd.MarkFlagRequired("layer-index")
	layerBlendModeCmd.MarkFlagRequired("mode")

	layerDuplicateCmd.Flags().IntVar(&layerDupIndex, "layer-index", 0, "layer to duplicate")
	layerDuplicateCmd.Flags().IntVar(&layerDupPosition, "position", 0, "stack position for the copy")
	layerDuplicateCmd.Flags().StringVar(&layerDupOutput, "output", "", "write to this path instead of editing in place")
	layerDuplicateCmd.MarkFlagRequired("layer-index")

	layerMergeDownCmd.Flags().IntVar(&layerMergeIndex, "layer-index", 0, "layer to merge down")
	layerMergeDownCmd.Flags().StringVar(&layerMergeOutput, "output", "", "write to this path instead of editing in place")
	layerMergeDownCmd.MarkFlagRequired("layer-index")

	layerReorderCmd.Flags().IntVar(&layerReorderIndex, "layer-index", 0, "layer to move")
	layerReorderCmd.Flags().IntVar(&layerReorderTarget, "index", 0, "destination stack position")
	layerReorderCmd.Flags().StringVar(&layerReorderOutput, "output", "", "write to this path instead of editing in place")
	layerReorderCmd.MarkFlagRequired("layer-index")
	layerReorderCmd.MarkFlagRequired("index")

	rootCmd.AddCommand(
		layerListCmd, layerAddCmd, layerRemoveCmd, layerRenameCmd,
		layerOpacityCmd, layerBlendModeCmd, layerDuplicateCmd,
		layerMergeDownCmd, layerReorderCmd,
	)
}
