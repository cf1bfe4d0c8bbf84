//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Fetch downloads the latest release client JAR.
func Fetch() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "fetch")
}

// ETL loads jobs and enchantments from the configured source into the database.
func ETL() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "etl")
}

// Record starts an interactive trade recording session.
func Record() error {
	mg.Deps(Build)
	return sh.RunV(binPath, "record")
}
