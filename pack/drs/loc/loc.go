// Package loc parses locator lists and resource metadata nodes.
// Locators pin effects, turrets and UI anchors onto a model.
package loc

import (
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/bstream"
	"github.com/battleforge-tools/drsbrowser/pack/drs"
	"github.com/battleforge-tools/drsbrowser/pack/drs/geom"
)

const CDRW_LOCATOR_LIST_MAGIC = 281702437

// Locator class ids as used by the game.
const (
	LOCATOR_CLASS_HEALTH_BAR        = 0
	LOCATOR_CLASS_DESTRUCTIBLE_PART = 1
	LOCATOR_CLASS_CONSTRUCTION      = 2
	LOCATOR_CLASS_TURRET            = 3
	LOCATOR_CLASS_FXB_IDLE          = 4
	LOCATOR_CLASS_WHEEL             = 5
	LOCATOR_CLASS_STATIC_PERM       = 6
	LOCATOR_CLASS_DYNAMIC_PERM      = 8
	LOCATOR_CLASS_HIT               = 16
	LOCATOR_CLASS_PROJECTILE_SPAWN  = 29
)

var gLocatorClassNames = map[int32]string{
	LOCATOR_CLASS_HEALTH_BAR:        "HealthBar",
	LOCATOR_CLASS_DESTRUCTIBLE_PART: "DestructiblePart",
	LOCATOR_CLASS_CONSTRUCTION:      "Construction",
	LOCATOR_CLASS_TURRET:            "Turret",
	LOCATOR_CLASS_FXB_IDLE:          "FxbIdle",
	LOCATOR_CLASS_WHEEL:             "Wheel",
	LOCATOR_CLASS_STATIC_PERM:       "StaticPerm",
	7:                               "Unknown7",
	LOCATOR_CLASS_DYNAMIC_PERM:      "DynamicPerm",
	9:                               "DamageFlameSmall",
	10:                              "DamageFlameSmallSmoke",
	11:                              "DamageFlameLarge",
	12:                              "DamageSmokeOnly",
	13:                              "DamageFlameHuge",
	14:                              "SpellCast",
	15:                              "SpellHitAll",
	LOCATOR_CLASS_HIT:               "Hit",
	LOCATOR_CLASS_PROJECTILE_SPAWN:  "Projectile_Spawn",
}

func LocatorClassName(classID int32) string {
	if name, ok := gLocatorClassNames[classID]; ok {
		return name
	}
	return "Unknown"
}

// SLocator places a named attachment in model space, optionally bound
// to a bone. The uk int exists only in version 5 lists.
type SLocator struct {
	CoordinateSystem geom.CMatCoordinateSystem
	ClassID          int32
	BoneID           int32
	FileName         string
	UkInt            int32
}

func (l *SLocator) ClassName() string { return LocatorClassName(l.ClassID) }

func (l *SLocator) unmarshalReader(r *bstream.Reader, version int32) {
	l.CoordinateSystem.UnmarshalReader(r)
	l.ClassID = r.ReadI32()
	l.BoneID = r.ReadI32()
	l.FileName = r.ReadLString()
	if version == 5 {
		l.UkInt = r.ReadI32()
	}
}

func (l *SLocator) marshalWriter(w *bstream.Writer, version int32) {
	l.CoordinateSystem.MarshalWriter(w)
	w.WriteI32(l.ClassID)
	w.WriteI32(l.BoneID)
	w.WriteLString(l.FileName)
	if version == 5 {
		w.WriteI32(l.UkInt)
	}
}

func (l *SLocator) byteSize(version int32) int {
	size := geom.CMAT_COORDINATE_SYSTEM_SIZE + 12 + len(l.FileName)
	if version == 5 {
		size += 4
	}
	return size
}

// CDrwLocatorList is the CDrwLocatorList node payload.
type CDrwLocatorList struct {
	Magic    int32
	Version  int32
	Locators []SLocator
}

func UnmarshalCDrwLocatorList(data []byte) (*CDrwLocatorList, error) {
	r := bstream.NewReader(data)
	l := &CDrwLocatorList{}
	l.Magic = r.ReadI32()
	if l.Magic != CDRW_LOCATOR_LIST_MAGIC {
		return nil, errors.Errorf("Bad CDrwLocatorList magic 0x%.8x", uint32(l.Magic))
	}
	l.Version = r.ReadI32()
	locatorCount := r.ReadI32()
	if locatorCount < 0 || int(locatorCount)*(geom.CMAT_COORDINATE_SYSTEM_SIZE+12) > r.Remaining() {
		return nil, errors.Errorf("Bad locator count %d", locatorCount)
	}
	l.Locators = make([]SLocator, locatorCount)
	for i := range l.Locators {
		l.Locators[i].unmarshalReader(r, l.Version)
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse CDrwLocatorList")
	}
	return l, nil
}

func (l *CDrwLocatorList) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(l.Magic)
	w.WriteI32(l.Version)
	w.WriteI32(int32(len(l.Locators)))
	for i := range l.Locators {
		l.Locators[i].marshalWriter(w, l.Version)
	}
	return w.Bytes()
}

func (l *CDrwLocatorList) ByteSize() int {
	size := 12
	for i := range l.Locators {
		size += l.Locators[i].byteSize(l.Version)
	}
	return size
}

// CGdLocatorList payloads have no documented layout. The raw bytes are
// kept verbatim so containers carrying one survive a round trip.
type CGdLocatorList struct {
	Raw []byte
}

func UnmarshalCGdLocatorList(data []byte) (*CGdLocatorList, error) {
	raw := make([]byte, len(data))
	copy(raw, data)
	return &CGdLocatorList{Raw: raw}, nil
}

func (l *CGdLocatorList) Marshal() []byte { return l.Raw }
func (l *CGdLocatorList) ByteSize() int   { return len(l.Raw) }

// DrwResourceMeta carries the source asset hash string.
type DrwResourceMeta struct {
	Version int32
	Unknown int32
	Hash    string
}

func UnmarshalDrwResourceMeta(data []byte) (*DrwResourceMeta, error) {
	r := bstream.NewReader(data)
	m := &DrwResourceMeta{}
	m.Version = r.ReadI32()
	m.Unknown = r.ReadI32()
	m.Hash = r.ReadLString()
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse DrwResourceMeta")
	}
	return m, nil
}

func (m *DrwResourceMeta) Marshal() []byte {
	w := bstream.NewWriter()
	w.WriteI32(m.Version)
	w.WriteI32(m.Unknown)
	w.WriteLString(m.Hash)
	return w.Bytes()
}

func (m *DrwResourceMeta) ByteSize() int { return 12 + len(m.Hash) }

func init() {
	drs.SetHandler(drs.MAGIC_CDRW_LOCATOR_LIST, func(data []byte) (interface{}, error) {
		return UnmarshalCDrwLocatorList(data)
	})
	drs.SetHandler(drs.MAGIC_CGD_LOCATOR_LIST, func(data []byte) (interface{}, error) {
		return UnmarshalCGdLocatorList(data)
	})
	drs.SetHandler(drs.MAGIC_DRW_RESOURCE_META, func(data []byte) (interface{}, error) {
		return UnmarshalDrwResourceMeta(data)
	})
}
