package badger

import "fmt"

// Key prefixes for different data types
const (
	snapshotPrefix        = "snap"
	snapshotGenerationSeq = "snapseq"
)

// makeSnapshotKey generates the key holding the encoded snapshot.
func makeSnapshotKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", snapshotPrefix, name))
}

// makeGenerationKey generates the key holding the generation of the
// snapshot stored under name.
func makeGenerationKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s:gen", snapshotPrefix, name))
}
