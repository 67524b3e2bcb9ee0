// Registry extractor. Parses the SYSTEM and SOFTWARE hives for USB
// device history, autorun entries and installed programs.

package extractors

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/Velocidex/ordereddict"
	errors "github.com/pkg/errors"
	"www.velocidex.com/golang/regparser"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
)

const (
	systemHivePath   = "Windows\\System32\\config\\SYSTEM"
	softwareHivePath = "Windows\\System32\\config\\SOFTWARE"
)

var (
	usbstorKeys = []string{
		"ControlSet001\\Enum\\USBSTOR",
		"ControlSet002\\Enum\\USBSTOR",
	}

	runKeys = []string{
		"Microsoft\\Windows\\CurrentVersion\\Run",
		"Microsoft\\Windows\\CurrentVersion\\RunOnce",
	}

	uninstallKeys = []string{
		"Microsoft\\Windows\\CurrentVersion\\Uninstall",
		"Wow6432Node\\Microsoft\\Windows\\CurrentVersion\\Uninstall",
	}
)

type RegistryExtractor struct{}

func (self RegistryExtractor) Name() string {
	return "registry"
}

func (self RegistryExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	var hive_errors []string

	for _, volume := range walker.ListVolumes() {
		system, err := openHive(volume, systemHivePath)
		if err == nil {
			self.extractUSBDevices(ctx, system, case_id,
				volume.Name(), output)
		} else if !errors.Is(err, filesystem.ErrFileNotFound) {
			// A present but unparseable hive is a partial failure
			// worth surfacing. A missing hive is not.
			hive_errors = append(hive_errors, err.Error())
		}

		software, err := openHive(volume, softwareHivePath)
		if err == nil {
			self.extractRunKeys(ctx, software, case_id,
				volume.Name(), output)
			self.extractInstalledPrograms(ctx, software, case_id,
				volume.Name(), output)
		} else if !errors.Is(err, filesystem.ErrFileNotFound) {
			hive_errors = append(hive_errors, err.Error())
		}
	}

	if len(hive_errors) > 0 {
		return errors.New(strings.Join(hive_errors, "; "))
	}
	return nil
}

func openHive(volume *filesystem.Volume, path string) (
	*regparser.Registry, error) {

	data, err := volume.ReadFile(path)
	if err != nil {
		return nil, err
	}

	registry, err := regparser.NewRegistry(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt hive %v", path)
	}
	return registry, nil
}

// USBSTOR records every mass storage device ever connected, keyed by
// its serial number. The key write times bound the connection window.
func (self RegistryExtractor) extractUSBDevices(
	ctx context.Context, registry *regparser.Registry,
	case_id, volume string, output chan<- *artifacts.Artifact) {

	for _, usbstor_path := range usbstorKeys {
		usbstor := registry.OpenKey(usbstor_path)
		if usbstor == nil {
			continue
		}

		for _, device := range usbstor.Subkeys() {
			for _, instance := range device.Subkeys() {
				serial := instance.Name()
				seen := instance.LastWriteTime().Time

				friendly := ""
				value := getValueString(instance, "FriendlyName")
				if value != "" {
					friendly = value
				}

				artifact := &artifacts.Artifact{
					CaseId:     case_id,
					Type:       artifacts.USBDevice,
					NaturalKey: serial,
					Source: volume + "\\" + systemHivePath +
						":" + usbstor_path + "\\" + device.Name(),
					Timestamp: seen,
					FirstSeen: seen,
					LastSeen:  seen,
					Payload: ordereddict.NewDict().
						Set("serial_number", serial).
						Set("device_name", device.Name()).
						Set("friendly_name", friendly),
				}
				if !emit(ctx, output, self.Name(), artifact) {
					return
				}
			}
		}
	}
}

func (self RegistryExtractor) extractRunKeys(
	ctx context.Context, registry *regparser.Registry,
	case_id, volume string, output chan<- *artifacts.Artifact) {

	for _, run_path := range runKeys {
		key := registry.OpenKey(run_path)
		if key == nil {
			continue
		}

		modified := key.LastWriteTime().Time
		for _, value := range key.Values() {
			reg_path := run_path + "\\" + value.ValueName()

			artifact := &artifacts.Artifact{
				CaseId:     case_id,
				Type:       artifacts.RunKey,
				NaturalKey: reg_path,
				Source:     volume + "\\" + softwareHivePath + ":" + reg_path,
				Timestamp:  modified,
				Payload: ordereddict.NewDict().
					Set("name", value.ValueName()).
					Set("command", valueAsString(value)).
					Set("key", run_path),
			}
			if !emit(ctx, output, self.Name(), artifact) {
				return
			}
		}
	}
}

func (self RegistryExtractor) extractInstalledPrograms(
	ctx context.Context, registry *regparser.Registry,
	case_id, volume string, output chan<- *artifacts.Artifact) {

	for _, uninstall_path := range uninstallKeys {
		key := registry.OpenKey(uninstall_path)
		if key == nil {
			continue
		}

		for _, program := range key.Subkeys() {
			display_name := getValueString(program, "DisplayName")
			if display_name == "" {
				continue
			}

			reg_path := uninstall_path + "\\" + program.Name()
			timestamp := program.LastWriteTime().Time

			// InstallDate, when present, is a plain YYYYMMDD string.
			install_date := getValueString(program, "InstallDate")
			if install_date != "" {
				parsed, err := time.Parse("20060102", install_date)
				if err == nil {
					timestamp = parsed
				}
			}

			artifact := &artifacts.Artifact{
				CaseId:     case_id,
				Type:       artifacts.InstalledProgram,
				NaturalKey: reg_path,
				Source:     volume + "\\" + softwareHivePath + ":" + reg_path,
				Timestamp:  timestamp,
				Payload: ordereddict.NewDict().
					Set("display_name", display_name).
					Set("version", getValueString(program, "DisplayVersion")).
					Set("publisher", getValueString(program, "Publisher")),
			}
			if !emit(ctx, output, self.Name(), artifact) {
				return
			}
		}
	}
}

func getValueString(key *regparser.CM_KEY_NODE, name string) string {
	for _, value := range key.Values() {
		if strings.EqualFold(value.ValueName(), name) {
			return valueAsString(value)
		}
	}
	return ""
}

func valueAsString(value *regparser.CM_KEY_VALUE) string {
	return strings.TrimRight(value.ValueData().String, "\x00")
}

func init() {
	RegisterExtractor(&RegistryExtractor{})
}
