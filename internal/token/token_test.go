package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerTrackDescriptorDefaults(t *testing.T) {
	d := NewPerTrackDescriptor()
	assert.Equal(t, "UPC", d.Slot("ProductID").AttrValue("type"))
	assert.Equal(t, "false", d.Slot("ProductID").AttrValue("completed"))
	assert.Equal(t, "SHA256", d.Slot("Media").AttrValue("algorithm"))
	assert.Equal(t, "allrightsreserved", d.Slot("Copyright").AttrValue("value"))
	assert.Nil(t, d.Slot("AssetID_nonexistent"))
}

func TestPackageDescriptorDropsTrackOnlyElements(t *testing.T) {
	d := NewPackageDescriptor()
	assert.Nil(t, d.Slot("AssetID"))
	assert.Nil(t, d.Slot("UID"))
	assert.Nil(t, d.Slot("Media"))
	assert.Empty(t, d.Slot("ProductID").AttrValue("completed"))
}

func TestValidateRequiredPerTrack(t *testing.T) {
	d := NewPerTrackDescriptor()
	require.Error(t, d.ValidateRequired())

	require.NoError(t, d.Set("nonce", "N1"))
	require.NoError(t, d.Set("Distributor", "D"))
	require.NoError(t, d.Set("ProductID", "0600753XXXXX7"))
	require.Error(t, d.ValidateRequired(), "still missing TID/UID and Media")

	require.NoError(t, d.Set("TID", "T1"))
	require.Error(t, d.ValidateRequired(), "still missing Media")

	require.NoError(t, d.Set("Media", "deadbeef"))
	require.NoError(t, d.ValidateRequired())
}

func TestValidateRequiredPackage(t *testing.T) {
	d := NewPackageDescriptor()
	require.NoError(t, d.Set("nonce", "N1"))
	require.NoError(t, d.Set("Distributor", "D"))
	require.NoError(t, d.Set("ProductID", "0600753XXXXX7"))
	require.Error(t, d.ValidateRequired())
	require.NoError(t, d.Set("TID", "T1"))
	require.NoError(t, d.ValidateRequired())
}

func TestExpandMultiRequiresEqualCardinality(t *testing.T) {
	d := NewPerTrackDescriptor()
	require.NoError(t, d.Set("URLS", "http://a,http://b"))
	require.NoError(t, d.SetAttr("URLS", "type", "WPUB,WCOM"))

	values, attrs, err := d.Slot("URLS").ExpandMulti()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a", "http://b"}, values)
	assert.Equal(t, []string{"WPUB", "WCOM"}, attrs)

	require.NoError(t, d.SetAttr("URLS", "type", "WPUB"))
	_, _, err = d.Slot("URLS").ExpandMulti()
	require.Error(t, err)
}

func TestSetUnknownElementFails(t *testing.T) {
	d := NewPackageDescriptor()
	require.Error(t, d.Set("AssetID", "x"))
}
