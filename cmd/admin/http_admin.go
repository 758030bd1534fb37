package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func getCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	httpDo(http.MethodGet, *baseURL, "/admin/v1/"+name, nil, 5*time.Second)
}

func postCmd(name string, args []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	httpDo(http.MethodPost, *baseURL, "/admin/v1/"+name, nil, 10*time.Second)
}

func shuffleCmd(args []string) {
	fs := flag.NewFlagSet("shuffle", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	seedA := fs.String("seed_a", "", "first entropy seed (required)")
	seedB := fs.String("seed_b", "", "second entropy seed (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*seedA) == "" || strings.TrimSpace(*seedB) == "" {
		fmt.Fprintln(os.Stderr, "missing -seed_a or -seed_b")
		os.Exit(2)
	}
	httpDo(http.MethodPost, *baseURL, "/admin/v1/shuffle", map[string]any{
		"seed_a": *seedA,
		"seed_b": *seedB,
	}, 10*time.Second)
}

func dropCmd(args []string) {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	kind := fs.String("kind", "", "deposit kind: TOKENS or HEALTH (required)")
	amount := fs.Uint64("amount", 0, "amount to drop (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*kind) == "" || *amount == 0 {
		fmt.Fprintln(os.Stderr, "missing -kind or -amount")
		os.Exit(2)
	}
	httpDo(http.MethodPost, *baseURL, "/admin/v1/drop", map[string]any{
		"kind":   strings.ToUpper(strings.TrimSpace(*kind)),
		"amount": *amount,
	}, 10*time.Second)
}

func configCmd(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	file := fs.String("file", "", "balance config JSON (path, or - for stdin)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(2)
	}
	var (
		raw []byte
		err error
	)
	if *file == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*file)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read config:", err)
		os.Exit(1)
	}
	httpDo(http.MethodPost, *baseURL, "/admin/v1/config", json.RawMessage(raw), 10*time.Second)
}

func httpDo(method, baseURL, path string, body any, timeout time.Duration) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintln(os.Stderr, "encode body:", err)
			os.Exit(1)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, u, rd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
