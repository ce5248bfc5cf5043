// Package main provides the gifstudio command-line tool for offline renders.
package main

func main() {
	Execute()
}
