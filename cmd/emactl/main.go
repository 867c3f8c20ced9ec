// Command emactl drives the sample-mounting robot from the command line.
package main

func main() {
	Execute()
}
