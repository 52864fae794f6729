// Generates a backend signer keypair and prints both wallet export
// formats. The base58 secret goes in BACKEND_SIGNER_KEY.
package main

import (
	"fmt"
	"os"

	"learnledger/ledger"
)

func main() {
	kp, err := ledger.NewKeypair()
	if err != nil {
		fmt.Println("error: cannot generate keypair:", err)
		os.Exit(1)
	}

	fmt.Println("public address: ", kp.Public)
	fmt.Println("secret (base58):", kp.SecretBase58())

	fmt.Print("secret (json):   [")
	for i, b := range kp.Private {
		if i > 0 {
			fmt.Print(",")
		}
		fmt.Print(b)
	}
	fmt.Println("]")
}
