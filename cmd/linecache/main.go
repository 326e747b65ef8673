// Command linecache runs a cache between a random traffic generator and an
// ideal memory controller, and checks that every value read back matches
// what was written.
package main

func main() {
	Execute()
}
