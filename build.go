//go:build ignore

// build.go - Image to Excel Converter build system
// Usage: go run build.go [-target=TARGET] [-ocr] [-v]
// Targets: all, web, convert, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const module = "github.com/oshinlather/image-to-excel-converter"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	// OCR links Tesseract through gosseract (needs libtesseract headers)
	OCR     bool
	Release bool
	GOOS    string
	GOARCH  string
}

var (
	distDir = "dist"

	// key = directory under cmd/, value = output name without extension
	executables = map[string]string{
		"web":     "img2xlsx-server",
		"convert": "img2xlsx",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	ocr := flag.Bool("ocr", false, "Build with Tesseract OCR support")
	goos := flag.String("os", runtime.GOOS, "Target operating system")
	goarch := flag.String("arch", runtime.GOARCH, "Target architecture")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	ctx := &BuildContext{
		Verbose: *verbose,
		OCR:     *ocr,
		GOOS:    *goos,
		GOARCH:  *goarch,
	}

	switch *target {
	case "all":
		buildAll(ctx)
	case "web", "convert":
		buildExecutable(*target, ctx)
	case "clean":
		clean(ctx.Verbose)
	case "test":
		runTests(ctx)
	case "release":
		ctx.Release = true
		clean(ctx.Verbose)
		buildAll(ctx)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "   Image to Excel Converter - Build System " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(ctx *BuildContext) {
	printInfo("Building all executables...")
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		printError(fmt.Sprintf("Failed to create %s: %v", distDir, err))
		os.Exit(1)
	}
	for name := range executables {
		buildExecutable(name, ctx)
	}
	printSuccess("All executables built successfully!")
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func buildExecutable(name string, ctx *BuildContext) {
	exeName, ok := executables[name]
	if !ok {
		printError(fmt.Sprintf("Unknown executable: %s", name))
		os.Exit(1)
	}
	if ctx.GOOS == "windows" {
		exeName += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, ctx.GOOS, ctx.GOARCH))

	outputPath := filepath.Join(distDir, exeName)
	ldflags := fmt.Sprintf("-X %s/pkg/contracts.BuildTime=%s -X %s/pkg/contracts.GitCommit=%s",
		module, time.Now().UTC().Format(time.RFC3339), module, gitCommit())
	if ctx.Release {
		ldflags = "-s -w " + ldflags
	}

	args := []string{"build", "-ldflags", ldflags, "-o", outputPath}
	if ctx.OCR {
		args = append(args, "-tags", "ocr")
		printInfo("Building with Tesseract OCR enabled")
	}
	if ctx.Release {
		args = append(args, "-trimpath")
	}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), "GOOS="+ctx.GOOS, "GOARCH="+ctx.GOARCH)
	if !ctx.OCR {
		// gosseract is cgo; plain builds stay static
		cmd.Env = append(cmd.Env, "CGO_ENABLED=0")
	}
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		sizeMB := float64(info.Size()) / 1024 / 1024
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, sizeMB))
	}
}

func clean(verbose bool) {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printWarning(fmt.Sprintf("Failed to remove %s: %v", distDir, err))
		return
	}
	if verbose {
		fmt.Printf("Removed %s\n", distDir)
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(ctx *BuildContext) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if ctx.OCR {
		args = append(args, "-tags", "ocr")
	}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-ocr] [-os=GOOS] [-arch=GOARCH] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all        Build the server and the CLI (default)")
	fmt.Println("  web        Build the HTTP server only")
	fmt.Println("  convert    Build the command line converter only")
	fmt.Println("  clean      Remove build artifacts")
	fmt.Println("  test       Run all tests with the race detector")
	fmt.Println("  release    Clean, then build stripped executables")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -ocr       Enable Tesseract OCR (requires cgo and libtesseract)")
	fmt.Println("  -v         Verbose output")
}
