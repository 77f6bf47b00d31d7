//go:build darwin && cgo

package macos

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>

// Element 0 is the main element on every macOS release.
#define ML_ELEMENT_MAIN 0

static OSStatus ml_device_count(UInt32 *count) {
	AudioObjectPropertyAddress addr = {kAudioHardwarePropertyDevices, kAudioObjectPropertyScopeGlobal, ML_ELEMENT_MAIN};
	UInt32 size = 0;
	OSStatus st = AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &addr, 0, NULL, &size);
	*count = size / sizeof(AudioObjectID);
	return st;
}

static OSStatus ml_device_ids(AudioObjectID *ids, UInt32 *count) {
	AudioObjectPropertyAddress addr = {kAudioHardwarePropertyDevices, kAudioObjectPropertyScopeGlobal, ML_ELEMENT_MAIN};
	UInt32 size = *count * sizeof(AudioObjectID);
	OSStatus st = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, ids);
	*count = size / sizeof(AudioObjectID);
	return st;
}

static OSStatus ml_device_name(AudioObjectID id, char *buf, UInt32 len) {
	AudioObjectPropertyAddress addr = {kAudioDevicePropertyDeviceNameCFString, kAudioObjectPropertyScopeGlobal, ML_ELEMENT_MAIN};
	CFStringRef name = NULL;
	UInt32 size = sizeof(name);
	OSStatus st = AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, &name);
	if (st != noErr) {
		return st;
	}
	if (name == NULL) {
		return kAudioHardwareUnspecifiedError;
	}
	Boolean ok = CFStringGetCString(name, buf, len, kCFStringEncodingUTF8);
	CFRelease(name);
	return ok ? noErr : kAudioHardwareUnspecifiedError;
}

static OSStatus ml_stream_channels(AudioObjectID id, AudioObjectPropertyScope scope, UInt32 *channels, UInt32 max, UInt32 *n) {
	AudioObjectPropertyAddress addr = {kAudioDevicePropertyStreamConfiguration, scope, ML_ELEMENT_MAIN};
	UInt32 size = 0;
	*n = 0;
	OSStatus st = AudioObjectGetPropertyDataSize(id, &addr, 0, NULL, &size);
	if (st != noErr) {
		return st;
	}
	if (size < sizeof(AudioBufferList)) {
		return noErr;
	}
	AudioBufferList *list = (AudioBufferList *)malloc(size);
	if (list == NULL) {
		return kAudioHardwareUnspecifiedError;
	}
	st = AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, list);
	if (st == noErr) {
		UInt32 count = list->mNumberBuffers < max ? list->mNumberBuffers : max;
		for (UInt32 i = 0; i < count; i++) {
			channels[i] = list->mBuffers[i].mNumberChannels;
		}
		*n = count;
	}
	free(list);
	return st;
}

static OSStatus ml_get_u32(AudioObjectID id, AudioObjectPropertySelector sel, AudioObjectPropertyScope scope, AudioObjectPropertyElement el, UInt32 *out) {
	AudioObjectPropertyAddress addr = {sel, scope, el};
	UInt32 size = sizeof(UInt32);
	return AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, out);
}

static OSStatus ml_set_u32(AudioObjectID id, AudioObjectPropertySelector sel, AudioObjectPropertyScope scope, AudioObjectPropertyElement el, UInt32 v) {
	AudioObjectPropertyAddress addr = {sel, scope, el};
	return AudioObjectSetPropertyData(id, &addr, 0, NULL, sizeof(UInt32), &v);
}

static OSStatus ml_get_f32(AudioObjectID id, AudioObjectPropertyElement el, Float32 *out) {
	AudioObjectPropertyAddress addr = {kAudioDevicePropertyVolumeScalar, kAudioDevicePropertyScopeOutput, el};
	UInt32 size = sizeof(Float32);
	return AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, out);
}

static OSStatus ml_set_f32(AudioObjectID id, AudioObjectPropertyElement el, Float32 v) {
	AudioObjectPropertyAddress addr = {kAudioDevicePropertyVolumeScalar, kAudioDevicePropertyScopeOutput, el};
	return AudioObjectSetPropertyData(id, &addr, 0, NULL, sizeof(Float32), &v);
}

static OSStatus ml_stereo(AudioObjectID id, UInt32 *left, UInt32 *right) {
	AudioObjectPropertyAddress addr = {kAudioDevicePropertyPreferredChannelsForStereo, kAudioDevicePropertyScopeOutput, ML_ELEMENT_MAIN};
	UInt32 channels[2] = {0, 0};
	UInt32 size = sizeof(channels);
	OSStatus st = AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, channels);
	*left = channels[0];
	*right = channels[1];
	return st;
}
*/
import "C"

import (
	"unsafe"

	"maclock/internal/domain"
)

const (
	maxNameLen = 512
	maxBuffers = 64
)

// CoreAudio implements domain.AudioHardware on the system audio object.
type CoreAudio struct{}

// NewCoreAudio returns the CoreAudio backend.
func NewCoreAudio() (domain.AudioHardware, error) {
	return CoreAudio{}, nil
}

func check(op string, st C.OSStatus) error {
	if st == 0 {
		return nil
	}
	return domain.StatusError(op, int32(st))
}

func (CoreAudio) DeviceIDs() ([]domain.DeviceID, error) {
	var count C.UInt32
	if err := check("list devices", C.ml_device_count(&count)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	raw := make([]C.AudioObjectID, count)
	if err := check("list devices", C.ml_device_ids(&raw[0], &count)); err != nil {
		return nil, err
	}
	ids := make([]domain.DeviceID, 0, count)
	for _, id := range raw[:count] {
		ids = append(ids, domain.DeviceID(id))
	}
	return ids, nil
}

func (CoreAudio) DeviceName(id domain.DeviceID) (string, error) {
	buf := (*C.char)(C.malloc(maxNameLen))
	defer C.free(unsafe.Pointer(buf))
	if err := check("device name", C.ml_device_name(C.AudioObjectID(id), buf, maxNameLen)); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func (CoreAudio) StreamChannels(id domain.DeviceID, dir domain.Direction) ([]int, error) {
	scope := C.AudioObjectPropertyScope(C.kAudioDevicePropertyScopeOutput)
	if dir == domain.DirectionInput {
		scope = C.kAudioDevicePropertyScopeInput
	}
	var (
		raw [maxBuffers]C.UInt32
		n   C.UInt32
	)
	if err := check("stream configuration", C.ml_stream_channels(C.AudioObjectID(id), scope, &raw[0], maxBuffers, &n)); err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i := range out {
		out[i] = int(raw[i])
	}
	return out, nil
}

func (CoreAudio) PreferredStereoChannels(id domain.DeviceID) (domain.StereoChannels, error) {
	var left, right C.UInt32
	if err := check("stereo channels", C.ml_stereo(C.AudioObjectID(id), &left, &right)); err != nil {
		return domain.StereoChannels{}, err
	}
	return domain.StereoChannels{Left: uint32(left), Right: uint32(right)}, nil
}

func (CoreAudio) Volume(id domain.DeviceID, channel uint32) (float32, error) {
	var v C.Float32
	if err := check("get volume", C.ml_get_f32(C.AudioObjectID(id), C.AudioObjectPropertyElement(channel), &v)); err != nil {
		return 0, err
	}
	return float32(v), nil
}

func (CoreAudio) SetVolume(id domain.DeviceID, channel uint32, volume float32) error {
	return check("set volume", C.ml_set_f32(C.AudioObjectID(id), C.AudioObjectPropertyElement(channel), C.Float32(volume)))
}

func (CoreAudio) Mute(id domain.DeviceID) (bool, error) {
	var v C.UInt32
	err := check("get mute", C.ml_get_u32(C.AudioObjectID(id), C.kAudioDevicePropertyMute, C.kAudioDevicePropertyScopeOutput, C.ML_ELEMENT_MAIN, &v))
	return v != 0, err
}

func (CoreAudio) SetMute(id domain.DeviceID, muted bool) error {
	var v C.UInt32
	if muted {
		v = 1
	}
	return check("set mute", C.ml_set_u32(C.AudioObjectID(id), C.kAudioDevicePropertyMute, C.kAudioDevicePropertyScopeOutput, C.ML_ELEMENT_MAIN, v))
}

func (CoreAudio) JackConnected(id domain.DeviceID) (bool, error) {
	var v C.UInt32
	err := check("jack", C.ml_get_u32(C.AudioObjectID(id), C.kAudioDevicePropertyJackIsConnected, C.kAudioDevicePropertyScopeOutput, C.ML_ELEMENT_MAIN, &v))
	return v != 0, err
}

func defaultSelector(role domain.Role) C.AudioObjectPropertySelector {
	if role == domain.RoleSystem {
		return C.kAudioHardwarePropertyDefaultSystemOutputDevice
	}
	return C.kAudioHardwarePropertyDefaultOutputDevice
}

func (CoreAudio) DefaultOutput(role domain.Role) (domain.DeviceID, error) {
	var v C.UInt32
	if err := check("get default output", C.ml_get_u32(C.kAudioObjectSystemObject, defaultSelector(role), C.kAudioDevicePropertyScopeOutput, C.ML_ELEMENT_MAIN, &v)); err != nil {
		return 0, err
	}
	return domain.DeviceID(v), nil
}

func (CoreAudio) SetDefaultOutput(role domain.Role, id domain.DeviceID) error {
	return check("set default output", C.ml_set_u32(C.kAudioObjectSystemObject, defaultSelector(role), C.kAudioDevicePropertyScopeOutput, C.ML_ELEMENT_MAIN, C.UInt32(id)))
}
