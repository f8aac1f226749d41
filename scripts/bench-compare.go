//go:build ignore

// Package main compares two `go test -bench` output files and flags
// regressions in ns/op.
// Usage: go run scripts/bench-compare.go [-threshold 0.2] <current.txt> <baseline.txt>
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
)

var (
	threshold = flag.Float64("threshold", 0.20, "Fractional ns/op slowdown that counts as a regression")
	showAll   = flag.Bool("all", false, "Print every benchmark, not just regressions and improvements")
)

// benchLine matches "BenchmarkName-8   1234   567.8 ns/op ...".
var benchLine = regexp.MustCompile(`^(Benchmark\S+)\s+\d+\s+([\d.]+)\s+ns/op`)

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: bench-compare [-threshold f] [-all] <current.txt> <baseline.txt>\n")
		os.Exit(2)
	}

	current, err := parse(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bench-compare: %v\n", err)
		os.Exit(2)
	}
	baseline, err := parse(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bench-compare: %v\n", err)
		os.Exit(2)
	}

	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)

	regressions := 0
	for _, name := range names {
		base, ok := baseline[name]
		if !ok || base == 0 {
			if *showAll {
				fmt.Printf("%-55s %12.0f ns/op  (no baseline)\n", name, current[name])
			}
			continue
		}
		delta := (current[name] - base) / base
		switch {
		case delta > *threshold:
			regressions++
			fmt.Printf("%-55s %12.0f ns/op  %+6.1f%%  REGRESSION\n", name, current[name], delta*100)
		case delta < -*threshold:
			fmt.Printf("%-55s %12.0f ns/op  %+6.1f%%  faster\n", name, current[name], delta*100)
		case *showAll:
			fmt.Printf("%-55s %12.0f ns/op  %+6.1f%%\n", name, current[name], delta*100)
		}
	}

	if regressions > 0 {
		fmt.Printf("\n%d benchmark(s) regressed by more than %.0f%%\n", regressions, *threshold*100)
		os.Exit(1)
	}
	fmt.Println("no regressions")
}

func parse(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]float64)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		m := benchLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		ns, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		out[m[1]] = ns
	}
	return out, sc.Err()
}
