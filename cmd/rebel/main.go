// Rebel - provision, inspect and tear down AWS environments.
package main

func main() {
	Execute()
}
