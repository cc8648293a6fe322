package services

import (
	"context"

	"resqall/interfaces"
	"resqall/models"

	"github.com/sirupsen/logrus"
)

// DeviceService reads device metadata for the evidence bundle. Metadata is
// best-effort and never blocks a run: any failure degrades to "Unknown".
type DeviceService struct {
	provider interfaces.DeviceInfoProvider
}

func NewDeviceService(provider interfaces.DeviceInfoProvider) *DeviceService {
	return &DeviceService{
		provider: provider,
	}
}

func (ds *DeviceService) GetDeviceInfo(ctx context.Context) models.DeviceInfo {
	if ds.provider == nil {
		return models.DefaultDeviceInfo()
	}

	info, err := ds.provider.DeviceInfo(ctx)
	if err != nil {
		logrus.Warnf("Failed to read device info: %v", err)
		return models.DefaultDeviceInfo()
	}

	return info.Normalize()
}
