// Command qrb archives a file as a set of QR code page images, and
// reconstructs a file from a set of scanned page images.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}
