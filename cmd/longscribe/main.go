// Command longscribe transcribes long media files by splitting them into
// overlapping chunks, recognising each chunk, and reassembling the results
// into a single transcript.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
