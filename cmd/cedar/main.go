// Package main is the entry point for the cedar driver.
package main

func main() {
	Execute()
}
