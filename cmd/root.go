package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "doorlock",
	Short: "Face recognition door lock",
	Long: `Doorlock watches a camera, recognizes enrolled faces and drives the
door relay, indicator and buzzer. Faces are enrolled, deleted and the door
is opened manually through a small web control surface.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
