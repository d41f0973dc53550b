// Package token models the uits token descriptor: a bounded, ordered
// sequence of element slots, each with a value, a multi-valued flag,
// and an ordered set of attributes with defaults. Two fixed
// descriptors exist — per-track and package-level — mirroring the
// uitsMetadataDesc/cmeMetadataDesc element tables in
// uitsPayloadManager.c/cmePayloadManager.c.
package token

import (
	"strings"

	"github.com/protocol7/uits-go/internal/errs"
)

// Profile names one of the two token variants.
type Profile struct {
	Name      string // "uits" or "cmeuits"
	Namespace string
	XSDFile   string // default schema filename
}

var (
	PerTrack = Profile{
		Name:      "uits",
		Namespace: "http://www.udirector.net/schemas/2009/uits/1.1",
		XSDFile:   "uits.xsd",
	}
	Package = Profile{
		Name:      "cmeuits",
		Namespace: "http://www.udirector.net/schemas/2011/cmeuits/1.2",
		XSDFile:   "cme-uits.xsd",
	}
)

// Attribute is one name/value pair on a slot, with its configured default.
type Attribute struct {
	Name    string
	Value   string
	Default string
}

// Slot is one element in the token descriptor: a name, an optional
// value, a multi-valued flag, and its attributes in declaration order.
type Slot struct {
	Element    string
	Value      string
	Present    bool
	Multi      bool
	Attributes []Attribute
}

func (s *Slot) attr(name string) *Attribute {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return &s.Attributes[i]
		}
	}
	return nil
}

// AttrValue returns the value of the named attribute, falling back to
// its configured default.
func (s *Slot) AttrValue(name string) string {
	a := s.attr(name)
	if a == nil {
		return ""
	}
	if a.Value != "" {
		return a.Value
	}
	return a.Default
}

// ExpandMulti splits a multi-valued slot's value and its single typed
// attribute on commas, positionally. The two lists must have equal
// cardinality or the slot is malformed.
func (s *Slot) ExpandMulti() (values []string, attrValues []string, err error) {
	if !s.Multi {
		return nil, nil, errs.New(errs.Value, "token.ExpandMulti", s.Element+" is not multi-valued")
	}
	if len(s.Attributes) != 1 {
		return nil, nil, errs.New(errs.Value, "token.ExpandMulti", s.Element+" must have exactly one attribute to be multi-valued")
	}
	values = splitComma(s.Value)
	attrValues = splitComma(s.attr(s.Attributes[0].Name).valueOrDefault())
	if len(values) != len(attrValues) {
		return nil, nil, errs.New(errs.Value, "token.ExpandMulti",
			s.Element+" value and attribute cardinality mismatch")
	}
	return values, attrValues, nil
}

func (a *Attribute) valueOrDefault() string {
	if a.Value != "" {
		return a.Value
	}
	return a.Default
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// Descriptor is the ordered sequence of slots for one profile.
type Descriptor struct {
	Profile Profile
	slots   []*Slot
	index   map[string]*Slot
}

// Set assigns value to the named element slot. Returns an error if no
// such element exists in this descriptor (e.g. setting AssetID on a
// package-level descriptor).
func (d *Descriptor) Set(element, value string) error {
	slot, ok := d.index[element]
	if !ok {
		return errs.New(errs.Value, "token.Set", "no such element "+element+" in "+d.Profile.Name+" profile")
	}
	slot.Value = value
	slot.Present = value != ""
	return nil
}

// SetAttr assigns value to the named attribute of the named element.
func (d *Descriptor) SetAttr(element, attrName, value string) error {
	slot, ok := d.index[element]
	if !ok {
		return errs.New(errs.Value, "token.SetAttr", "no such element "+element+" in "+d.Profile.Name+" profile")
	}
	a := slot.attr(attrName)
	if a == nil {
		return errs.New(errs.Value, "token.SetAttr", "no such attribute "+attrName+" on "+element)
	}
	a.Value = value
	return nil
}

// Slot returns the slot for element, or nil if the descriptor does not
// carry it.
func (d *Descriptor) Slot(element string) *Slot {
	return d.index[element]
}

// Slots returns every slot in declaration order.
func (d *Descriptor) Slots() []*Slot {
	return d.slots
}

func (d *Descriptor) add(s *Slot) {
	d.slots = append(d.slots, s)
	d.index[s.Element] = s
}

// NewPerTrackDescriptor builds the per-track token descriptor with its
// default attribute values populated (type=UPC/ISRC, version=1,
// algorithm=SHA256, copyright value=allrightsreserved, etc — mirroring
// uitsPayloadManager.c's uits_*_attributes tables).
func NewPerTrackDescriptor() *Descriptor {
	d := &Descriptor{Profile: PerTrack, index: make(map[string]*Slot)}
	d.add(&Slot{Element: "nonce"})
	d.add(&Slot{Element: "Distributor"})
	d.add(&Slot{Element: "Time"})
	d.add(&Slot{Element: "ProductID", Attributes: []Attribute{
		{Name: "type", Default: "UPC"},
		{Name: "completed", Default: "false"},
	}})
	d.add(&Slot{Element: "AssetID", Attributes: []Attribute{
		{Name: "type", Default: "ISRC"},
	}})
	d.add(&Slot{Element: "TID", Attributes: []Attribute{
		{Name: "version", Default: "1"},
	}})
	d.add(&Slot{Element: "UID", Attributes: []Attribute{
		{Name: "version", Default: "1"},
	}})
	d.add(&Slot{Element: "Media", Attributes: []Attribute{
		{Name: "algorithm", Default: "SHA256"},
	}})
	d.add(&Slot{Element: "URL", Attributes: []Attribute{
		{Name: "type", Default: "WPUB"},
	}})
	d.add(&Slot{Element: "URLS", Multi: true, Attributes: []Attribute{
		{Name: "type", Default: "WPUB"},
	}})
	d.add(&Slot{Element: "PA"})
	d.add(&Slot{Element: "Copyright", Attributes: []Attribute{
		{Name: "value", Default: "allrightsreserved"},
	}})
	d.add(&Slot{Element: "Extra", Attributes: []Attribute{
		{Name: "type", Default: "NULL"},
	}})
	d.add(&Slot{Element: "Extras", Multi: true, Attributes: []Attribute{
		{Name: "type", Default: "NULL"},
	}})
	return d
}

// NewPackageDescriptor builds the package-level (CME-UITS) token
// descriptor: no AssetID, UID, Media, or ProductID "completed"
// attribute, per cmePayloadManager.c's header comment and
// cmeMetadataDesc table.
func NewPackageDescriptor() *Descriptor {
	d := &Descriptor{Profile: Package, index: make(map[string]*Slot)}
	d.add(&Slot{Element: "nonce"})
	d.add(&Slot{Element: "Distributor"})
	d.add(&Slot{Element: "Time"})
	d.add(&Slot{Element: "ProductID", Attributes: []Attribute{
		{Name: "type", Default: "UPC"},
	}})
	d.add(&Slot{Element: "TID", Attributes: []Attribute{
		{Name: "version", Default: "1"},
	}})
	d.add(&Slot{Element: "URL", Attributes: []Attribute{
		{Name: "type", Default: "WPUB"},
	}})
	d.add(&Slot{Element: "URLS", Multi: true, Attributes: []Attribute{
		{Name: "type", Default: "WPUB"},
	}})
	d.add(&Slot{Element: "PA"})
	d.add(&Slot{Element: "Copyright", Attributes: []Attribute{
		{Name: "value", Default: "allrightsreserved"},
	}})
	d.add(&Slot{Element: "Extra", Attributes: []Attribute{
		{Name: "type", Default: "NULL"},
	}})
	d.add(&Slot{Element: "Extras", Multi: true, Attributes: []Attribute{
		{Name: "type", Default: "NULL"},
	}})
	return d
}

// ValidateRequired enforces the presence invariants from spec.md §3:
// per-track requires nonce/Distributor/ProductID and at least one of
// TID/UID, plus Media; package requires nonce/Distributor/ProductID/TID.
func (d *Descriptor) ValidateRequired() error {
	required := []string{"nonce", "Distributor", "ProductID"}
	for _, name := range required {
		if slot := d.Slot(name); slot == nil || !slot.Present {
			return errs.New(errs.Payload, "token.ValidateRequired", name+" is required")
		}
	}
	if d.Profile.Name == PerTrack.Name {
		tid := d.Slot("TID")
		uid := d.Slot("UID")
		if (tid == nil || !tid.Present) && (uid == nil || !uid.Present) {
			return errs.New(errs.Payload, "token.ValidateRequired", "at least one of TID or UID is required")
		}
		if media := d.Slot("Media"); media == nil || !media.Present {
			return errs.New(errs.Payload, "token.ValidateRequired", "Media is required for the per-track profile")
		}
	} else {
		if tid := d.Slot("TID"); tid == nil || !tid.Present {
			return errs.New(errs.Payload, "token.ValidateRequired", "TID is required for the package profile")
		}
	}
	return nil
}
