package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/certforge/formsync/internal/config"
	"github.com/certforge/formsync/internal/form"
	"github.com/certforge/formsync/internal/template"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	showValues   = flag.Bool("values", false, "Print current field values instead of field definitions")
	fillValues   = flag.String("fill", "", "JSON object of values to fill into the template")
	outputPath   = flag.String("output", "", "Output path for the filled copy (required with -fill)")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	svc := template.NewService(config.DefaultMaxFileSize, *verbose)

	switch {
	case *fillValues != "":
		err = runFill(svc, pdfPath)
	case *showValues:
		err = runValues(svc, pdfPath)
	default:
		err = runFields(svc, pdfPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFields(svc *template.Service, pdfPath string) error {
	result, err := svc.ExtractFields(template.ExtractFieldsRequest{Path: pdfPath})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result.Payload)
	}

	payload := result.Payload
	if payload.Extraction.FieldCount == 0 {
		fmt.Println("No form fields detected in the PDF")
		return nil
	}

	fmt.Printf("Extracted %d form fields (%s)\n\n", payload.Extraction.FieldCount, payload.Extraction.Method)
	for i, field := range payload.Fields {
		fmt.Printf("[%d] %s\n", i+1, field.Name)
		fmt.Printf("    Type: %s\n", field.Kind)
		if field.PageIndex >= 0 {
			fmt.Printf("    Page: %d\n", field.PageIndex+1)
		}
		if field.Bounds != nil {
			fmt.Printf("    Position: (%.1f, %.1f) to (%.1f, %.1f)\n",
				field.Bounds.LowerLeft.X, field.Bounds.LowerLeft.Y,
				field.Bounds.UpperRight.X, field.Bounds.UpperRight.Y)
		}
		if field.Required {
			fmt.Printf("    Properties: [Required]\n")
		}
		if len(field.Options) > 0 {
			fmt.Printf("    Options: %v\n", field.Options)
		}
		fmt.Println()
	}
	return nil
}

func runValues(svc *template.Service, pdfPath string) error {
	result, err := svc.ExtractValues(template.ExtractValuesRequest{Path: pdfPath})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	if len(result.Values) == 0 {
		fmt.Println("No form fields detected in the PDF")
		return nil
	}

	fmt.Printf("Extracted %d field values (%s)\n\n", result.Report.FieldCount, result.Report.Strategy)
	for _, field := range sortedNames(result.Values) {
		fmt.Printf("  %s = %q\n", field, result.Values[field].String())
	}
	return nil
}

func runFill(svc *template.Service, pdfPath string) error {
	if *outputPath == "" {
		return fmt.Errorf("-output is required with -fill")
	}

	var values form.ValueMapping
	if err := json.Unmarshal([]byte(*fillValues), &values); err != nil {
		return fmt.Errorf("invalid -fill JSON: %w", err)
	}

	result, err := svc.Fill(template.FillRequest{
		Path:       pdfPath,
		OutputPath: *outputPath,
		Values:     values,
	})
	if err != nil {
		return err
	}

	if *outputFormat == "json" {
		return outputJSON(result)
	}

	if result.FellBack {
		fmt.Printf("Could not serialize a filled copy; wrote the original document to %s\n", result.OutputPath)
		return nil
	}

	fmt.Printf("Filled %d fields -> %s\n", result.Report.Filled, result.OutputPath)
	if len(result.Report.NotFound) > 0 {
		fmt.Printf("Not found in template: %v\n", result.Report.NotFound)
	}
	for _, failure := range result.Report.Failed {
		fmt.Printf("Failed: %s (%s)\n", failure.Name, failure.Reason)
	}
	return nil
}

func sortedNames(values form.ValueMapping) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printHelp() {
	fmt.Println("Formsync Fields - Inspect and fill form fields in PDF documents")
	fmt.Println()
	fmt.Println("Extracts AcroForm field definitions and values from PDF templates,")
	fmt.Println("and fills templates from a JSON value mapping.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format        Output format: text (default), json")
	fmt.Println("  -values        Print current field values instead of field definitions")
	fmt.Println("  -fill          JSON object of values to fill into the template")
	fmt.Println("  -output        Output path for the filled copy (required with -fill)")
	fmt.Println("  -verbose       Enable verbose output")
	fmt.Println("  -help          Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  formsync_fields document.pdf")
	fmt.Println("  formsync_fields -values document.pdf")
	fmt.Println("  formsync_fields -format json document.pdf")
	fmt.Println(`  formsync_fields -fill '{"name":"Alice","agree":true}' -output filled.pdf document.pdf`)
	fmt.Println()
	fmt.Println("VALUE SEMANTICS:")
	fmt.Println("  • Strings fill text fields verbatim; an empty string clears the field")
	fmt.Println("  • true/false toggle checkboxes using their conventional on-state")
	fmt.Println("  • Strings starting with '/' select a named appearance state, e.g. \"/Red\"")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  formsync_fields [OPTIONS] <pdf_file>")
}

func init() {
	// Custom flag usage
	flag.Usage = func() {
		printHelp()
	}
}
