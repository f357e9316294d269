// cmd/tools/schema-registry/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

type paramFlags []string

func (p *paramFlags) String() string { return strings.Join(*p, ",") }

func (p *paramFlags) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	urlCmd := flag.NewFlagSet("url", flag.ExitOnError)

	listPath := listCmd.String("path", "", "Path to a registry file (default: built-in registry)")

	showPath := showCmd.String("path", "", "Path to a registry file (default: built-in registry)")
	showOp := showCmd.String("op", "", "Operation (e.g., occurrence_search)")

	validatePath := validateCmd.String("path", "", "Path to the registry file to validate")

	urlPath := urlCmd.String("path", "", "Path to a registry file (default: built-in registry)")
	urlOp := urlCmd.String("op", "", "Operation (e.g., occurrence_search)")
	var params paramFlags
	urlCmd.Var(&params, "param", "field=value, repeatable")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		reg := mustLoad(*listPath)
		for _, op := range reg.Operations() {
			d, _ := reg.Get(op)
			fmt.Printf("%-20s %-22s %s\n", op, d.Endpoint(), d.Description())
		}

	case "show":
		showCmd.Parse(os.Args[2:])
		if *showOp == "" {
			fmt.Println("Error: op is required for show.")
			showCmd.Usage()
			os.Exit(1)
		}
		d, err := mustLoad(*showPath).Get(models.Operation(*showOp))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(d.Summary(), "", "  ")
		fmt.Println(string(out))

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *validatePath == "" {
			fmt.Println("Error: path is required for validate.")
			validateCmd.Usage()
			os.Exit(1)
		}
		if err := validateRegistry(*validatePath); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "url":
		urlCmd.Parse(os.Args[2:])
		if *urlOp == "" {
			fmt.Println("Error: op is required for url.")
			urlCmd.Usage()
			os.Exit(1)
		}
		apiURL, portalURL, err := assemble(mustLoad(*urlPath), models.Operation(*urlOp), params)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("api:    %s\nportal: %s\n", apiURL, portalURL)

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoad(path string) *schema.Registry {
	var (
		reg *schema.Registry
		err error
	)
	if path == "" {
		reg, err = schema.Default()
	} else {
		reg, err = schema.LoadFile(path)
	}
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

// validateRegistry loads the file, which checks each descriptor, and then requires a
// descriptor for every supported operation.
func validateRegistry(path string) error {
	reg, err := schema.LoadFile(path)
	if err != nil {
		return err
	}
	var missing []string
	for _, op := range models.AllOperations {
		if _, err := reg.Get(op); err != nil {
			missing = append(missing, string(op))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("no descriptor for: %s", strings.Join(missing, ", "))
	}
	return nil
}

func assemble(reg *schema.Registry, op models.Operation, params []string) (string, string, error) {
	d, err := reg.Get(op)
	if err != nil {
		return "", "", err
	}
	set := models.ParameterSet{}
	for _, p := range params {
		field, value, ok := strings.Cut(p, "=")
		if !ok {
			return "", "", fmt.Errorf("param %q is not field=value", p)
		}
		set.Add(field, value)
	}
	q, err := query.Assemble(d, set)
	if err != nil {
		return "", "", err
	}
	return q.APIURL(gbif.DefaultAPIBaseURL), q.PortalURL(gbif.DefaultPortalBaseURL), nil
}

func help() {
	fmt.Println(`Usage: schema-registry <command> [options]

Commands:
  list      List operations and their endpoints
            -path <file>       Registry file (default: built-in)
  show      Print one operation descriptor as JSON
            -op <operation>    Operation name (required)
            -path <file>       Registry file (default: built-in)
  validate  Check a registry file
            -path <file>       Registry file (required)
  url       Assemble the API and portal URLs for a parameter set
            -op <operation>    Operation name (required)
            -param field=value Repeatable
            -path <file>       Registry file (default: built-in)
  help      Show this help message`)
}
