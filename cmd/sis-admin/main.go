package main

import (
	"fmt"
	"os"
)

// @title SIS Admin API
// @version 1.0.0
// @description List views, enrollment selection and SF5/SF6 exports for the school information system admin.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
