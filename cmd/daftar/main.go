package main

import (
	"os"

	cc "github.com/ivanpirog/coloredcobra"

	"github.com/daftar-dev/daftar/internal/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()

	cc.Init(&cc.Config{
		RootCmd:         rootCmd,
		Headings:        cc.HiCyan + cc.Bold + cc.Underline,
		Commands:        cc.HiYellow + cc.Bold,
		Example:         cc.Italic,
		ExecName:        cc.Bold,
		Flags:           cc.Bold,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
