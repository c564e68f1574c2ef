package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imagectl",
	Short: "Run the edge image transformer locally",
	Long: `imagectl drives the same handler the object lambda runs, without AWS.

Examples:
  imagectl transform ./cat.jpg --query "width=320&format=webp" -o cat.webp
  imagectl transform ./cat.jpg --query "auto=avif" --accept "image/avif,image/*"
  imagectl upload ./cat.jpg photos/cat.jpg`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newTransformCmd(), newUploadCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
