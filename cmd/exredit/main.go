// exredit inspects and edits OpenEXR files from the command line.
//
// Usage:
//
//	exredit [-config file] [-logLevel level] [-noColor] command [opts] args
//
// Commands:
//
//	info      summarize the parts of one or more files
//	attrs     list the header attributes of a part
//	set-attr  change or add one attribute and save
//	compress  change the compression of parts and save
//	preview   render a part, layer or channel to PNG
//	diff      compare the headers and pixels of two files
//	check     validate files, optionally against ACES container rules
//
// Exit codes: 0 on success, 1 when diff finds differences or check finds
// errors, 2 on usage errors.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/scott-cotton/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cli.MainContext(ctx, MainCommand(ctx))
}
