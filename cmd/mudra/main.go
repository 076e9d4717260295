// Command mudra runs the gesture and voice command daemon.
package main

func main() {
	Execute()
}
