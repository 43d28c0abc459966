package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
)

func main() {
	url := flag.String("url", "http://localhost:8080/__admin/status", "status endpoint")
	cond := flag.String("cond", "$.history_size > 0", "JSONPath condition the status must satisfy")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail(fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fail(err)
	}
	ok, err := check(body, *cond)
	if err != nil {
		fail(err)
	}
	if !ok {
		fail(fmt.Errorf("condition not met: %s", *cond))
	}
}

// check evaluates cond, a gval expression with JSONPath operands, against
// the JSON document body.
func check(body []byte, cond string) (bool, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return false, fmt.Errorf("invalid status JSON: %w", err)
	}
	v, err := gval.Evaluate(cond, doc, jsonpath.Language())
	if err != nil {
		return false, fmt.Errorf("failed to evaluate %q: %w", cond, err)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q is %T, not bool", cond, v)
	}
	return b, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
	os.Exit(1)
}
