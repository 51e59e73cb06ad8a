// Command prio-rules writes and checks classifier rules files.
//
//	prio-rules -out rules.yaml     write the built-in thresholds
//	prio-rules -check rules.yaml   validate a rules file and print its values
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/okian/studyprio/internal/domain/priority"
)

func main() {
	var (
		out   = flag.String("out", "", "Write the built-in thresholds to this file")
		check = flag.String("check", "", "Validate this rules file")
	)
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *out, *check); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, out, check string) error {
	switch {
	case out != "" && check != "":
		return fmt.Errorf("use only one of -out and -check")
	case out != "":
		if err := priority.SaveThresholds(ctx, out, priority.DefaultThresholds()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "wrote %s\n", out)
		return nil
	case check != "":
		t, err := priority.LoadThresholds(ctx, check)
		if err != nil {
			return err
		}
		printThresholds(w, t)
		return nil
	default:
		printThresholds(w, priority.DefaultThresholds())
		return nil
	}
}

func printThresholds(w io.Writer, t priority.Thresholds) {
	m := t.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s: %g\n", k, m[k])
	}
}
