package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTarget_SMB(t *testing.T) {
	tgt := ParseTarget("smb/fs01/share")
	assert.Equal(t, "smb", tgt.Protocol)
	assert.Equal(t, "fs01", tgt.Server)
	assert.Equal(t, "share", tgt.Share)
	assert.Equal(t, "file://fs01/share/Finance/Q1.docx", tgt.URL("smb/fs01/share/Finance/Q1.docx"))
}

func TestParseTarget_NFSUsesFileScheme(t *testing.T) {
	tgt := ParseTarget("nfs/nas01/exports")
	assert.Equal(t, "file://nas01/exports/etc/fstab", tgt.URL("nfs/nas01/exports/etc/fstab"))
}

func TestParseTarget_HTTPKeepsScheme(t *testing.T) {
	tgt := ParseTarget("https/intranet.corp/wiki")
	assert.Equal(t, "intranet.corp", tgt.Server)
	assert.Equal(t, "wiki", tgt.Share)
	assert.Equal(t, "https://intranet.corp/wiki/index.html", tgt.URL("https/intranet.corp/wiki/index.html"))
}

func TestParseTarget_UnrecognizedPrefix(t *testing.T) {
	// Unrecognized roots keep raw paths and leave server/share empty.
	tgt := ParseTarget("local/data")
	assert.Empty(t, tgt.Protocol)
	assert.Empty(t, tgt.Server)
	assert.Empty(t, tgt.Share)
	assert.Equal(t, "local/data/notes.txt", tgt.URL("local/data/notes.txt"))
}

func TestParseTarget_DotSlashPrefix(t *testing.T) {
	tgt := ParseTarget("./smb/fs01/share")
	assert.Equal(t, "smb", tgt.Protocol)
	assert.Equal(t, "file://fs01/share/a.txt", tgt.URL("./smb/fs01/share/a.txt"))
}

func TestParseTarget_ServerOnly(t *testing.T) {
	tgt := ParseTarget("smb/fs01")
	assert.Equal(t, "fs01", tgt.Server)
	assert.Empty(t, tgt.Share)
}

func TestNestedURL(t *testing.T) {
	parent := "file://fs01/share/docs/bundle.zip"
	assert.Equal(t, "file://fs01/share/docs/bundle.zip#report.pdf", NestedURL(parent, "report.pdf"))
	// Two levels of nesting stack suffixes.
	assert.Equal(t, "file://fs01/share/docs/bundle.zip#report.pdf#img1.png",
		NestedURL(NestedURL(parent, "report.pdf"), "img1.png"))
}
