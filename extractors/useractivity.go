// Per user activity extractor. Each user profile carries an NTUSER.DAT
// hive whose UserAssist keys count GUI program launches, ROT13 encoded
// for no particularly good reason.

package extractors

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"

	"github.com/Velocidex/ordereddict"
	errors "github.com/pkg/errors"
	"www.velocidex.com/golang/regparser"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

const userAssistRoot = "Software\\Microsoft\\Windows\\CurrentVersion\\Explorer\\UserAssist"

// UserAssist value layout (Win7+, 72 bytes).
const (
	userAssistRecordSize  = 72
	userAssistRunCountOff = 4
	userAssistLastRunOff  = 60
)

type UserActivityExtractor struct{}

func (self UserActivityExtractor) Name() string {
	return "useractivity"
}

func (self UserActivityExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	var hive_errors []string

	for _, volume := range walker.ListVolumes() {
		for _, profile := range volume.ListUserProfiles() {
			hive_path := profile.Path + "\\NTUSER.DAT"
			data, err := volume.ReadFile(hive_path)
			if err != nil {
				// Profile without a hive - nothing to do.
				continue
			}

			registry, err := regparser.NewRegistry(bytes.NewReader(data))
			if err != nil {
				hive_errors = append(hive_errors,
					errors.Wrapf(err, "corrupt hive %v", hive_path).Error())
				continue
			}

			if !self.extractUserAssist(ctx, registry, case_id,
				profile.Name, volume.Name()+"\\"+hive_path, output) {
				return ctx.Err()
			}
		}
	}

	if len(hive_errors) > 0 {
		return errors.New(strings.Join(hive_errors, "; "))
	}
	return nil
}

func (self UserActivityExtractor) extractUserAssist(
	ctx context.Context, registry *regparser.Registry,
	case_id, username, source string,
	output chan<- *artifacts.Artifact) bool {

	root := registry.OpenKey(userAssistRoot)
	if root == nil {
		return true
	}

	for _, guid_key := range root.Subkeys() {
		count := registry.OpenKey(
			userAssistRoot + "\\" + guid_key.Name() + "\\Count")
		if count == nil {
			continue
		}

		for _, value := range count.Values() {
			program := utils.Rot13(value.ValueName())
			if program == "" || strings.HasPrefix(program, "UEME_") {
				continue
			}

			data := value.ValueData().Data
			if len(data) < userAssistRecordSize {
				continue
			}

			run_count := binary.LittleEndian.Uint32(
				data[userAssistRunCountOff : userAssistRunCountOff+4])
			last_run := utils.WinFileTime(binary.LittleEndian.Uint64(
				data[userAssistLastRunOff : userAssistLastRunOff+8]))

			artifact := &artifacts.Artifact{
				CaseId:     case_id,
				Type:       artifacts.ProgramExecution,
				NaturalKey: artifacts.MakeKey(program, username),
				Source:     source,
				Timestamp:  last_run,
				Payload: ordereddict.NewDict().
					Set("program", program).
					Set("username", username).
					Set("run_count", int64(run_count)).
					Set("mechanism", "userassist"),
			}
			if !emit(ctx, output, self.Name(), artifact) {
				return false
			}
		}
	}
	return true
}

func init() {
	RegisterExtractor(&UserActivityExtractor{})
}
