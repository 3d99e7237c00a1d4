package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"yaml2json/internal/logging"
	"yaml2json/internal/pipeline"
)

// resolvePaths applies flag priority: explicit flags win and positional
// arguments fill the remaining slots in input, output order.
func resolvePaths(args []string, flagIn, flagOut string) (in, out string) {
	in, out = flagIn, flagOut
	for _, arg := range args {
		switch {
		case in == "":
			in = arg
		case out == "":
			out = arg
		}
	}
	return in, out
}

// runConvert is the root command: one YAML document in, one JSON document out.
func runConvert(cmd *cobra.Command, args []string) error {
	in, out := resolvePaths(args, inputFile, outputFile)
	conv := newConverter()

	var (
		data []byte
		err  error
	)
	if in == "" || in == "-" {
		logging.BootDebug("reading standard input")
		data, err = convertStdin(conv, cmd.InOrStdin())
	} else {
		logging.BootDebug("converting %s", in)
		data, err = conv.ConvertFile(in)
	}
	if err != nil {
		return err
	}

	return pipeline.WriteOutput(out, data, cmd.OutOrStdout())
}

// convertStdin refuses to block on an interactive terminal.
func convertStdin(conv *pipeline.Converter, stdin io.Reader) ([]byte, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, pipeline.ErrNoInput
	}
	return conv.ConvertReader(stdin, "")
}
