// Command otter runs persisted otter-vm bytecode modules. It is a
// consumer of the engine's public seams only: module loading and
// validation, the VmContext lifecycle, and the Node-compatible fs
// extension.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/octofhir/otter-vm/imports/nodefs"
	"github.com/octofhir/otter-vm/internal/hostfs"
	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
	"github.com/octofhir/otter-vm/internal/version"
	"github.com/octofhir/otter-vm/internal/vm"
)

// Exit codes: 0 success, 1 uncaught exception (or internal failure,
// with a distinguishable prefix), 2 module decode/validation failure,
// 64 usage error.
const (
	exitSuccess  = 0
	exitUncaught = 1
	exitBadInput = 2
	exitUsage    = 64
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdErr)
		return exitUsage
	}
	switch args[0] {
	case "run":
		return doRun(args[1:], stdOut, stdErr)
	case "check":
		return doCheck(args[1:], stdOut, stdErr)
	case "version":
		fmt.Fprintln(stdOut, version.GetOtterVersion())
		return exitSuccess
	case "-h", "--help", "help":
		printUsage(stdErr)
		return exitSuccess
	default:
		fmt.Fprintf(stdErr, "otter: invalid command %q\n", args[0])
		printUsage(stdErr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "otter runs otter-vm bytecode modules.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  otter run    [flags] <module.otbc>")
	fmt.Fprintln(w, "  otter check  <module.otbc>")
	fmt.Fprintln(w, "  otter version")
}

func doRun(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(stdErr)
	noJIT := flags.Bool("no-jit", false, "Interpret only; never compile hot functions to native code.")
	printResult := flags.Bool("print", false, "Print the script's result value.")
	fsDir := flags.String("fs", "", "Install the Node-compatible fs extension rooted at this directory (read-only).")
	fsWrite := flags.Bool("fs-write", false, "Allow the fs extension to write (requires -fs).")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(stdErr, "otter: missing path to bytecode module")
		return exitUsage
	}
	if *fsWrite && *fsDir == "" {
		fmt.Fprintln(stdErr, "otter: -fs-write requires -fs")
		return exitUsage
	}

	data, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "otter: %v\n", err)
		return exitBadInput
	}

	cfg := vm.Config{DisableJIT: *noJIT}
	if *fsDir != "" {
		caps := nodefs.Capabilities{Read: true, Write: *fsWrite}
		cfg.Extensions = append(cfg.Extensions, nodefs.New(hostfs.NewOS(*fsDir), caps))
	}
	vc := vm.New(cfg)
	defer vc.Close()

	mod, err := vc.LoadModule(flags.Arg(0), data)
	if err != nil {
		fmt.Fprintf(stdErr, "otter: %v\n", err)
		return exitBadInput
	}

	result, err := vc.RunModule(context.Background(), mod)
	if err != nil {
		var thrown interp.ThrownValue
		if errors.As(err, &thrown) {
			fmt.Fprintln(stdErr, formatUncaught(vc.Thread, thrown.Value))
			return exitUncaught
		}
		fmt.Fprintf(stdErr, "otter: internal: %v\n", err)
		return exitUncaught
	}
	if *printResult {
		fmt.Fprintln(stdOut, vc.Thread.ToString(result))
	}
	return exitSuccess
}

// doCheck decodes and validates a module without running it, so build
// pipelines can reject malformed bytecode with the same exit code a
// failed `run` load would produce.
func doCheck(args []string, stdOut, stdErr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stdErr, "otter: missing path to bytecode module")
		return exitUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(stdErr, "otter: %v\n", err)
		return exitBadInput
	}
	vc := vm.New(vm.Config{DisableJIT: true})
	defer vc.Close()
	if _, err := vc.LoadModule(args[0], data); err != nil {
		fmt.Fprintf(stdErr, "otter: %v\n", err)
		return exitBadInput
	}
	fmt.Fprintf(stdOut, "%s: ok\n", args[0])
	return exitSuccess
}

// formatUncaught renders a thrown value as "Name: message" plus the
// stack property when the value is error-shaped, or its string
// conversion otherwise.
func formatUncaught(t *interp.VmThread, thrown jsvalue.Value) string {
	name := t.GetProperty(thrown, jsobject.StringKey(jsvalue.Intern("name")))
	message := t.GetProperty(thrown, jsobject.StringKey(jsvalue.Intern("message")))
	if name.IsUndefined() {
		return fmt.Sprintf("Uncaught %s", t.ToString(thrown))
	}
	out := fmt.Sprintf("Uncaught %s: %s", t.ToString(name), t.ToString(message))
	if stack := t.GetProperty(thrown, jsobject.StringKey(jsvalue.Intern("stack"))); !stack.IsUndefined() {
		out += "\n" + t.ToString(stack)
	}
	return out
}
