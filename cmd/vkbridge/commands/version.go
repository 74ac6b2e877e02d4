package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	vk "github.com/NOT-REAL-GAMES/vkbridge"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "vkbridge v%s\n", version)
		fmt.Fprintln(w, "Cross-device Vulkan image bridge")
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Go version: %s\n", runtime.Version())

		loader, err := vk.EnumerateInstanceVersion()
		if err != nil {
			fmt.Fprintf(w, "Vulkan loader: unavailable (%v)\n", err)
			return
		}
		fmt.Fprintf(w, "Vulkan loader: %d.%d.%d\n",
			vk.ApiVersionMajor(loader), vk.ApiVersionMinor(loader), vk.ApiVersionPatch(loader))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
