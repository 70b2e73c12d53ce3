//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for sqlite-diff using Mage.
//
// Usage:
//
//	mage build             Compile sqlite-diff to bin/
//	mage test:all          Run all tests (unit + integration)
//	mage test:unit         Run only unit tests
//	mage test:integration  Build, then run the end-to-end tests
//	mage test:cover        Run unit tests with a coverage profile
//	mage vet               Run go vet
//	mage lint              Run go vet, then golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install sqlite-diff to GOPATH/bin
package main
