// Command offercalc computes seller-finance offers from the terminal and
// keeps a local history of saved analyses.
package main

func main() {
	Execute()
}
