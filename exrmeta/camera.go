package exrmeta

import (
	"errors"

	"github.com/mrjoshuak/go-exredit/exr"
)

// CameraInfo identifies the capturing camera. Empty fields are not
// written.
type CameraInfo struct {
	Make            string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	UUID            string
	Label           string
}

func (c CameraInfo) fields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{AttrCameraMake, c.Make},
		{AttrCameraModel, c.Model},
		{AttrCameraSerialNumber, c.SerialNumber},
		{AttrCameraFirmwareVersion, c.FirmwareVersion},
		{AttrCameraUUID, c.UUID},
		{AttrCameraLabel, c.Label},
	}
}

// SetCameraInfo writes the non-empty fields of info.
func SetCameraInfo(a Attributes, info CameraInfo) error {
	return setStrings(a, info.fields())
}

// GetCameraInfo reads the camera identification attributes.
func GetCameraInfo(a Attributes) CameraInfo {
	return CameraInfo{
		Make:            getString(a, AttrCameraMake),
		Model:           getString(a, AttrCameraModel),
		SerialNumber:    getString(a, AttrCameraSerialNumber),
		FirmwareVersion: getString(a, AttrCameraFirmwareVersion),
		UUID:            getString(a, AttrCameraUUID),
		Label:           getString(a, AttrCameraLabel),
	}
}

// LensInfo identifies the lens.
type LensInfo struct {
	Make            string
	Model           string
	SerialNumber    string
	FirmwareVersion string
}

// SetLensInfo writes the non-empty fields of info.
func SetLensInfo(a Attributes, info LensInfo) error {
	return setStrings(a, []struct{ name, value string }{
		{AttrLensMake, info.Make},
		{AttrLensModel, info.Model},
		{AttrLensSerialNumber, info.SerialNumber},
		{AttrLensFirmwareVersion, info.FirmwareVersion},
	})
}

// GetLensInfo reads the lens identification attributes.
func GetLensInfo(a Attributes) LensInfo {
	return LensInfo{
		Make:            getString(a, AttrLensMake),
		Model:           getString(a, AttrLensModel),
		SerialNumber:    getString(a, AttrLensSerialNumber),
		FirmwareVersion: getString(a, AttrLensFirmwareVersion),
	}
}

func setStrings(a Attributes, fields []struct{ name, value string }) error {
	var errs []error
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		errs = append(errs, set(a, f.name, exr.TypeString, f.value))
	}
	return errors.Join(errs...)
}

// Exposure holds the float-valued capture settings. Zero fields are not
// written.
type Exposure struct {
	Aperture     float32 // f-number
	Focus        float32 // meters
	ISOSpeed     float32
	ExpTime      float32 // seconds
	ShutterAngle float32 // degrees
	TStop        float32

	NominalFocalLength   float32 // millimeters
	EffectiveFocalLength float32
	PinholeFocalLength   float32
}

var exposureAttrs = []string{
	AttrAperture, AttrFocus, AttrISOSpeed, AttrExpTime, AttrShutterAngle, AttrTStop,
	AttrNominalFocalLength, AttrEffectiveFocalLength, AttrPinholeFocalLength,
}

func (e *Exposure) values() []*float32 {
	return []*float32{
		&e.Aperture, &e.Focus, &e.ISOSpeed, &e.ExpTime, &e.ShutterAngle, &e.TStop,
		&e.NominalFocalLength, &e.EffectiveFocalLength, &e.PinholeFocalLength,
	}
}

// SetExposure writes the non-zero fields of e.
func SetExposure(a Attributes, e Exposure) error {
	var errs []error
	for i, v := range e.values() {
		if *v != 0 {
			errs = append(errs, set(a, exposureAttrs[i], exr.TypeFloat, *v))
		}
	}
	return errors.Join(errs...)
}

// GetExposure reads the capture settings; missing attributes read as 0.
func GetExposure(a Attributes) Exposure {
	var e Exposure
	for i, v := range e.values() {
		*v = getFloat(a, exposureAttrs[i])
	}
	return e
}

// GeoLocation is where the image was captured.
type GeoLocation struct {
	Longitude float32 // degrees east
	Latitude  float32 // degrees north
	Altitude  float32 // meters above sea level
}

// SetGeoLocation writes all three coordinates.
func SetGeoLocation(a Attributes, g GeoLocation) error {
	return errors.Join(
		set(a, AttrLongitude, exr.TypeFloat, g.Longitude),
		set(a, AttrLatitude, exr.TypeFloat, g.Latitude),
		set(a, AttrAltitude, exr.TypeFloat, g.Altitude),
	)
}

// GetGeoLocation returns the location if longitude and latitude are set.
func GetGeoLocation(a Attributes) (GeoLocation, bool) {
	lon, ok1 := get[float32](a, AttrLongitude)
	lat, ok2 := get[float32](a, AttrLatitude)
	if !ok1 || !ok2 {
		return GeoLocation{}, false
	}
	return GeoLocation{Longitude: lon, Latitude: lat, Altitude: getFloat(a, AttrAltitude)}, true
}

// SetWorldToCamera sets the camera transform.
func SetWorldToCamera(a Attributes, m exr.M44f) error {
	return set(a, AttrWorldToCamera, exr.TypeM44f, m)
}

// WorldToCamera returns the camera transform.
func WorldToCamera(a Attributes) (exr.M44f, bool) { return get[exr.M44f](a, AttrWorldToCamera) }

// SetWorldToNDC sets the projection to normalized device coordinates.
func SetWorldToNDC(a Attributes, m exr.M44f) error {
	return set(a, AttrWorldToNDC, exr.TypeM44f, m)
}

// WorldToNDC returns the projection to normalized device coordinates.
func WorldToNDC(a Attributes) (exr.M44f, bool) { return get[exr.M44f](a, AttrWorldToNDC) }
