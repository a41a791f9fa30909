// Package exrmeta provides typed accessors for the standard optional
// OpenEXR attributes.
//
// Accessors work on anything with the attribute surface of an exr.Part,
// so edits go through the part's validation and dirty tracking:
//
//	exrmeta.SetOwner(p, "Studio XYZ")
//	exrmeta.SetFramesPerSecond(p, exrmeta.FPS24)
//	fps, ok := exrmeta.FramesPerSecond(p)
package exrmeta

import (
	"math"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Standard attribute names.
const (
	AttrOwner           = "owner"
	AttrComments        = "comments"
	AttrCapDate         = "capDate"
	AttrUTCOffset       = "utcOffset"
	AttrFramesPerSecond = "framesPerSecond"
	AttrReelName        = "reelName"
	AttrImageCounter    = "imageCounter"
	AttrEnvMap          = "envmap"
	AttrWrapModes       = "wrapmodes"

	AttrAperture     = "aperture"
	AttrFocus        = "focus"
	AttrISOSpeed     = "isoSpeed"
	AttrExpTime      = "expTime"
	AttrShutterAngle = "shutterAngle"
	AttrTStop        = "tStop"

	AttrNominalFocalLength   = "nominalFocalLength"
	AttrEffectiveFocalLength = "effectiveFocalLength"
	AttrPinholeFocalLength   = "pinholeFocalLength"

	AttrCameraMake            = "cameraMake"
	AttrCameraModel           = "cameraModel"
	AttrCameraSerialNumber    = "cameraSerialNumber"
	AttrCameraFirmwareVersion = "cameraFirmwareVersion"
	AttrCameraUUID            = "cameraUuid"
	AttrCameraLabel           = "cameraLabel"

	AttrLensMake            = "lensMake"
	AttrLensModel           = "lensModel"
	AttrLensSerialNumber    = "lensSerialNumber"
	AttrLensFirmwareVersion = "lensFirmwareVersion"

	AttrLongitude = "longitude"
	AttrLatitude  = "latitude"
	AttrAltitude  = "altitude"

	AttrWhiteLuminance = "whiteLuminance"
	AttrXDensity       = "xDensity"
	AttrAdoptedNeutral = "adoptedNeutral"
	AttrChromaticities = "chromaticities"

	AttrWorldToCamera = "worldToCamera"
	AttrWorldToNDC    = "worldToNDC"

	AttrMultiView = "multiView"
)

// Attributes is the attribute surface of an exr.Part.
type Attributes interface {
	Attribute(name string) (exr.Attribute, bool)
	SetAttribute(a exr.Attribute) error
}

// get returns the value of name if it is present with Go type T.
func get[T any](a Attributes, name string) (T, bool) {
	var zero T
	attr, ok := a.Attribute(name)
	if !ok {
		return zero, false
	}
	v, ok := attr.Value.(T)
	return v, ok
}

func set(a Attributes, name string, t exr.AttributeType, v any) error {
	return a.SetAttribute(exr.Attribute{Name: name, Type: t, Value: v})
}

func getString(a Attributes, name string) string {
	s, _ := get[string](a, name)
	return s
}

func getFloat(a Attributes, name string) float32 {
	f, _ := get[float32](a, name)
	return f
}

// SetOwner sets the name of the file's owner.
func SetOwner(a Attributes, owner string) error {
	return set(a, AttrOwner, exr.TypeString, owner)
}

// Owner returns the owner, or "".
func Owner(a Attributes) string { return getString(a, AttrOwner) }

// SetComments sets free-form comments.
func SetComments(a Attributes, comments string) error {
	return set(a, AttrComments, exr.TypeString, comments)
}

// Comments returns the comments, or "".
func Comments(a Attributes) string { return getString(a, AttrComments) }

// SetCapDate sets the capture date, formatted "YYYY:MM:DD hh:mm:ss".
func SetCapDate(a Attributes, date string) error {
	return set(a, AttrCapDate, exr.TypeString, date)
}

// CapDate returns the capture date, or "".
func CapDate(a Attributes) string { return getString(a, AttrCapDate) }

// SetUTCOffset sets the offset of capDate from UTC in seconds.
func SetUTCOffset(a Attributes, seconds float32) error {
	return set(a, AttrUTCOffset, exr.TypeFloat, seconds)
}

// UTCOffset returns the offset of capDate from UTC in seconds.
func UTCOffset(a Attributes) float32 { return getFloat(a, AttrUTCOffset) }

// SetFramesPerSecond sets the playback rate.
func SetFramesPerSecond(a Attributes, r exr.Rational) error {
	return set(a, AttrFramesPerSecond, exr.TypeRational, r)
}

// FramesPerSecond returns the playback rate.
func FramesPerSecond(a Attributes) (exr.Rational, bool) {
	return get[exr.Rational](a, AttrFramesPerSecond)
}

// SetReelName sets the film reel name.
func SetReelName(a Attributes, name string) error {
	return set(a, AttrReelName, exr.TypeString, name)
}

// ReelName returns the film reel name, or "".
func ReelName(a Attributes) string { return getString(a, AttrReelName) }

// SetImageCounter sets the frame counter.
func SetImageCounter(a Attributes, counter int32) error {
	return set(a, AttrImageCounter, exr.TypeInt, counter)
}

// ImageCounter returns the frame counter.
func ImageCounter(a Attributes) (int32, bool) { return get[int32](a, AttrImageCounter) }

// SetEnvMap marks the image as an environment map.
func SetEnvMap(a Attributes, e exr.EnvMap) error {
	return set(a, AttrEnvMap, exr.TypeEnvmap, e)
}

// EnvMap returns the environment map projection.
func EnvMap(a Attributes) (exr.EnvMap, bool) { return get[exr.EnvMap](a, AttrEnvMap) }

// Standard frame rates.
var (
	FPS23976 = exr.Rational{Num: 24000, Denom: 1001}
	FPS24    = exr.Rational{Num: 24, Denom: 1}
	FPS25    = exr.Rational{Num: 25, Denom: 1}
	FPS2997  = exr.Rational{Num: 30000, Denom: 1001}
	FPS30    = exr.Rational{Num: 30, Denom: 1}
	FPS48    = exr.Rational{Num: 48, Denom: 1}
	FPS50    = exr.Rational{Num: 50, Denom: 1}
	FPS5994  = exr.Rational{Num: 60000, Denom: 1001}
	FPS60    = exr.Rational{Num: 60, Denom: 1}
	FPS120   = exr.Rational{Num: 120, Denom: 1}
)

var frameRateNames = map[exr.Rational]string{
	FPS23976: "23.976 fps (NTSC film)",
	FPS24:    "24 fps (cinema)",
	FPS25:    "25 fps (PAL)",
	FPS2997:  "29.97 fps (NTSC)",
	FPS30:    "30 fps",
	FPS48:    "48 fps (HFR cinema)",
	FPS50:    "50 fps (PAL HFR)",
	FPS5994:  "59.94 fps (NTSC HFR)",
	FPS60:    "60 fps",
	FPS120:   "120 fps",
}

// FrameRateName returns a readable name for a standard rate, or "".
func FrameRateName(r exr.Rational) string { return frameRateNames[r] }

// IsDropFrame reports whether r is one of the NTSC 1000/1001 rates.
func IsDropFrame(r exr.Rational) bool {
	return r == FPS23976 || r == FPS2997 || r == FPS5994
}

// FloatToRational approximates f, preferring the standard rates. The
// denominator stays at or below maxDenom (1001 when maxDenom <= 0).
func FloatToRational(f float64, maxDenom uint32) exr.Rational {
	if maxDenom == 0 {
		maxDenom = 1001
	}
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return exr.Rational{Num: 0, Denom: 1}
	}
	for r := range frameRateNames {
		if math.Abs(r.Float64()-f) < 1e-4 && r.Denom <= maxDenom {
			return r
		}
	}
	// Continued fraction convergents.
	var n0, n1 int64 = 0, 1
	var d0, d1 int64 = 1, 0
	x := f
	for range 32 {
		a := math.Floor(x)
		n, d := int64(a)*n1+n0, int64(a)*d1+d0
		if d > int64(maxDenom) || n > math.MaxInt32 {
			break
		}
		n0, n1, d0, d1 = n1, n, d1, d
		frac := x - a
		if frac < 1e-10 {
			break
		}
		x = 1 / frac
	}
	if d1 == 0 {
		return exr.Rational{Num: int32(math.Round(f)), Denom: 1}
	}
	return exr.Rational{Num: int32(n1), Denom: uint32(d1)}
}
