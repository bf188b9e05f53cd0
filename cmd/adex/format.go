package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jward/adex"
)

// output prints v as JSON when --format=json, otherwise runs the text
// renderer.
func output(v any, text func()) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func outputSymbols(symbols []adex.Symbol) error {
	return output(symbols, func() {
		if len(symbols) == 0 {
			fmt.Println("no results")
			return
		}
		for _, sym := range symbols {
			printSymbol(sym)
		}
	})
}

func printSymbol(sym adex.Symbol) {
	fmt.Printf("%d  %s %s  %s:%d\n",
		sym.ID, sym.Kind, sym.Name, sym.FilePath, sym.Location.StartLine+1)
}
