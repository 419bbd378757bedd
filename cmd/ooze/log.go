package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

type Logger struct {
	Debugging bool
}

func (l Logger) format(data ...interface{}) string {
	str := ""
	for _, d := range data {
		str += fmt.Sprintf("%v ", d)
	}
	return str
}

func (l Logger) Info(data ...interface{}) {
	blue := color.New(color.BgBlue).Add(color.FgWhite).Add(color.Bold).SprintFunc()
	fmt.Println(blue("INFO"), l.format(data...))
}

func (l Logger) Debug(data ...interface{}) {
	if !l.Debugging {
		return
	}
	cyan := color.New(color.BgCyan).Add(color.FgWhite).Add(color.Bold).SprintFunc()
	fmt.Println(cyan("DEBUG"), l.format(data...))
}

func (l Logger) Error(data ...interface{}) {
	red := color.New(color.BgRed).Add(color.FgWhite).Add(color.Bold).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %s\n", red("ERROR"), l.format(data...))
}
