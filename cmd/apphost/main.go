// Package main is the entry point for apphost.
package main

func main() {
	Execute()
}
