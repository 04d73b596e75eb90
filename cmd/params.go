// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/pidconf/pkg/pidconf"
	"github.com/spf13/cobra"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List configurable parameters",
	Long: `List the controller parameters with their identifier, encoded width,
scale factor, accepted range and value rule. No device is needed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printParams(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
}

func printParams(w io.Writer) {
	fmt.Fprintln(w, labelStyle.Render("Parameters"))
	for _, p := range pidconf.Parameters() {
		fmt.Fprintf(w, "  %s\n", pidconf.FormatParameter(p))
	}
}
