// The migrate binary drives the legacy-to-normalized database migration:
// seeding the legacy store with synthetic data, validating configuration,
// and running the migration itself.
package main

func main() {
	execute()
}
