package entity

import (
	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/models"
	"github.com/hieulq/nestup-evn/internal/sensor"
)

func AreaView(a evn.Area) models.AreaView {
	return models.AreaView{
		Name:           string(a.Name),
		Location:       a.Location,
		LoginURL:       a.LoginURL,
		DataRequestURL: a.DataRequestURL,
		Supported:      a.Supported,
		AuthNeeded:     a.AuthNeeded,
		HasEndpoints:   a.HasEndpoints(),
		Patterns:       a.Patterns,
	}
}

func AreaViews(areas []evn.Area) []models.AreaView {
	out := make([]models.AreaView, 0, len(areas))
	for _, a := range areas {
		out = append(out, AreaView(a))
	}
	return out
}

func SensorViews(descriptors []sensor.Descriptor) []models.SensorView {
	out := make([]models.SensorView, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, models.SensorView{
			Key:         d.Key,
			Name:        d.Name,
			Icon:        d.Icon,
			Unit:        d.Unit,
			StateClass:  string(d.StateClass),
			DeviceClass: string(d.DeviceClass),
		})
	}
	return out
}
