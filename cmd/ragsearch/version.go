package main

import (
	"context"
	"fmt"

	"github.com/a-h/ragsearch"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(ragsearch.Version)
	return nil
}
