package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/702ron/product-api-site-sub000/internal/pkg/cache"
	"github.com/702ron/product-api-site-sub000/internal/pkg/database"
	"github.com/702ron/product-api-site-sub000/internal/pkg/env"
	"github.com/702ron/product-api-site-sub000/internal/pkg/services"
)

// openServices connects to the configured database and Redis.
func openServices() (*services.Services, func(), error) {
	env.SetupEnvFile()
	db, err := database.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rdb := cache.SetupCache()

	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = rdb.Close()
	}
	return services.New(db, rdb), closeFn, nil
}

// readCodes collects FNSKUs from args, or one per line from file ("-" for stdin).
// Blank lines and lines starting with '#' are skipped.
func readCodes(args []string, file string) ([]string, error) {
	codes := append([]string{}, args...)
	if file == "" {
		return codes, nil
	}

	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}
	return codes, nil
}
