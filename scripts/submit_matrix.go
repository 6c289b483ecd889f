// submit_matrix.go: standalone script that posts one or more CSV decision
// matrices to a running topsisd and saves the scored tables next to them.
//
// Usage:
//
//	go run scripts/submit_matrix.go -api http://localhost:8700 -weights 1,1,1,2 -impacts +,+,-,+ data/*.csv
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "topsisd API base URL")
	weights := flag.String("weights", "", "comma-separated weights, e.g. 1,1,1,2")
	impacts := flag.String("impacts", "", "comma-separated impacts, e.g. +,+,-,+")
	email := flag.String("email", "", "mail results to this address instead of saving them")
	suffix := flag.String("suffix", "-result", "suffix added to the input name for saved results")
	dryRun := flag.Bool("dry-run", false, "print what would be submitted without posting")
	flag.Parse()

	if *weights == "" || *impacts == "" || flag.NArg() == 0 {
		log.Fatalf("usage: submit_matrix -weights W -impacts I file.csv [file.csv...]")
	}

	if *dryRun {
		for i, path := range flag.Args() {
			fmt.Printf("[%d] %s (weights=%s, impacts=%s, email=%q)\n", i+1, path, *weights, *impacts, *email)
		}
		return
	}

	client := &http.Client{Timeout: 60 * time.Second}
	scored, failed := 0, 0
	for _, path := range flag.Args() {
		out, err := submit(client, *apiURL, path, *weights, *impacts, *email, *suffix)
		if err != nil {
			log.Printf("skip %s: %v", path, err)
			failed++
			continue
		}
		if out != "" {
			log.Printf("%s -> %s", path, out)
		} else {
			log.Printf("%s -> mailed to %s", path, *email)
		}
		scored++
	}

	log.Printf("done: %d scored, %d failed", scored, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func submit(client *http.Client, apiURL, path, weights, impacts, email, suffix string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	_ = mw.WriteField("weights", weights)
	_ = mw.WriteField("impacts", impacts)
	if email != "" {
		_ = mw.WriteField("email", email)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", strings.TrimRight(apiURL, "/")+"/api/v1/topsis", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(payload, &e) == nil && e.Error != "" {
			if e.Kind != "" {
				return "", fmt.Errorf("status %d (%s): %s", resp.StatusCode, e.Kind, e.Error)
			}
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if email != "" {
		return "", nil
	}

	ext := filepath.Ext(path)
	out := strings.TrimSuffix(path, ext) + suffix + ext
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return "", err
	}
	return out, nil
}
