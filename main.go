package main

import (
	"context"

	"github.com/spf13/cobra"

	_ "github.com/ollama/kselect/backend/all"
	"github.com/ollama/kselect/cmd"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
