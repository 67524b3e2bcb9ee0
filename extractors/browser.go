// Browser extractor. Chromium derived browsers and Firefox both keep
// their history in sqlite databases inside the user profile. The
// database files are copied out of the image into a tempfile first -
// the sqlite driver needs a real file and the copy also sidesteps any
// stale -wal state.

package extractors

import (
	"context"
	"database/sql"
	"io/ioutil"
	"os"
	"strings"

	"github.com/Velocidex/ordereddict"
	_ "github.com/mattn/go-sqlite3"
	errors "github.com/pkg/errors"

	"github.com/Dhanushkumar2/computer-forensic/artifacts"
	"github.com/Dhanushkumar2/computer-forensic/filesystem"
	"github.com/Dhanushkumar2/computer-forensic/utils"
)

type chromiumInstall struct {
	Name string
	Path string
}

var chromiumInstalls = []chromiumInstall{
	{"Chrome", "AppData\\Local\\Google\\Chrome\\User Data\\Default"},
	{"Edge", "AppData\\Local\\Microsoft\\Edge\\User Data\\Default"},
}

const firefoxProfileRoot = "AppData\\Roaming\\Mozilla\\Firefox\\Profiles"

type BrowserExtractor struct{}

func (self BrowserExtractor) Name() string {
	return "browser"
}

func (self BrowserExtractor) Extract(
	ctx context.Context, walker *filesystem.Walker,
	case_id string, output chan<- *artifacts.Artifact) error {

	// A present but unreadable database is a partial failure worth
	// surfacing. A missing one is not - there is nothing to extract.
	var db_errors []string
	collect := func(err error) {
		if err != nil {
			db_errors = append(db_errors, err.Error())
		}
	}

	for _, volume := range walker.ListVolumes() {
		for _, profile := range volume.ListUserProfiles() {
			for _, install := range chromiumInstalls {
				base := profile.Path + "\\" + install.Path

				history_path := base + "\\History"
				collect(withImageDatabase(volume, history_path,
					func(handle *sql.DB) error {
						return self.chromiumHistory(ctx, handle,
							case_id, profile.Name, install.Name,
							volume.Name()+"\\"+history_path, output)
					}))
				if ctx.Err() != nil {
					return ctx.Err()
				}

				// The cookie db moved under Network\ in newer
				// versions.
				cookie_path := base + "\\Network\\Cookies"
				_, err := volume.Stat(cookie_path)
				if err != nil {
					cookie_path = base + "\\Cookies"
				}
				collect(withImageDatabase(volume, cookie_path,
					func(handle *sql.DB) error {
						return self.chromiumCookies(ctx, handle,
							case_id, profile.Name, install.Name,
							volume.Name()+"\\"+cookie_path, output)
					}))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}

			for _, info := range volume.ListDirectory(
				profile.Path + "\\" + firefoxProfileRoot) {
				if !info.IsDir {
					continue
				}
				base := profile.Path + "\\" + firefoxProfileRoot +
					"\\" + info.Name

				places_path := base + "\\places.sqlite"
				collect(withImageDatabase(volume, places_path,
					func(handle *sql.DB) error {
						return self.firefoxHistory(ctx, handle,
							case_id, profile.Name,
							volume.Name()+"\\"+places_path, output)
					}))
				if ctx.Err() != nil {
					return ctx.Err()
				}

				cookies_path := base + "\\cookies.sqlite"
				collect(withImageDatabase(volume, cookies_path,
					func(handle *sql.DB) error {
						return self.firefoxCookies(ctx, handle,
							case_id, profile.Name,
							volume.Name()+"\\"+cookies_path, output)
					}))
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}

	if len(db_errors) > 0 {
		return errors.New(strings.Join(db_errors, "; "))
	}
	return nil
}

func (self BrowserExtractor) chromiumHistory(
	ctx context.Context, handle *sql.DB,
	case_id, username, browser, source string,
	output chan<- *artifacts.Artifact) error {

	rows, err := handle.QueryContext(ctx, `
                SELECT urls.url, urls.title, visits.visit_time
                FROM visits JOIN urls ON visits.url = urls.id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var url, title string
		var visit_time int64
		if err := rows.Scan(&url, &title, &visit_time); err != nil {
			return err
		}

		visited := utils.ChromeTime(visit_time)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserHistory,
			NaturalKey: artifacts.MakeKey(
				url, artifacts.TimeKey(visited)),
			Source:    source,
			Timestamp: visited,
			Payload: ordereddict.NewDict().
				Set("url", url).
				Set("title", title).
				Set("browser", browser).
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return self.chromiumDownloads(ctx, handle, case_id,
		username, browser, source, output)
}

func (self BrowserExtractor) chromiumDownloads(
	ctx context.Context, handle *sql.DB,
	case_id, username, browser, source string,
	output chan<- *artifacts.Artifact) error {

	rows, err := handle.QueryContext(ctx, `
                SELECT target_path, tab_url, start_time,
                       received_bytes, total_bytes
                FROM downloads`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var target_path, url string
		var start_time, received, total int64
		err := rows.Scan(&target_path, &url, &start_time,
			&received, &total)
		if err != nil {
			return err
		}

		started := utils.ChromeTime(start_time)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserDownload,
			NaturalKey: artifacts.MakeKey(
				url, artifacts.TimeKey(started)),
			Source:    source,
			Timestamp: started,
			Payload: ordereddict.NewDict().
				Set("url", url).
				Set("target_path", target_path).
				Set("received_bytes", received).
				Set("total_bytes", total).
				Set("browser", browser).
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	return rows.Err()
}

func (self BrowserExtractor) chromiumCookies(
	ctx context.Context, handle *sql.DB,
	case_id, username, browser, source string,
	output chan<- *artifacts.Artifact) error {

	rows, err := handle.QueryContext(ctx, `
                SELECT host_key, name, creation_utc FROM cookies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var host, name string
		var creation int64
		if err := rows.Scan(&host, &name, &creation); err != nil {
			return err
		}

		created := utils.ChromeTime(creation)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserCookie,
			NaturalKey: artifacts.MakeKey(
				host, name, artifacts.TimeKey(created)),
			Source:    source,
			Timestamp: created,
			Payload: ordereddict.NewDict().
				Set("host", host).
				Set("name", name).
				Set("browser", browser).
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	return rows.Err()
}

func (self BrowserExtractor) firefoxHistory(
	ctx context.Context, handle *sql.DB,
	case_id, username, source string,
	output chan<- *artifacts.Artifact) error {

	rows, err := handle.QueryContext(ctx, `
                SELECT p.url, IFNULL(p.title, ''), v.visit_date
                FROM moz_historyvisits v
                JOIN moz_places p ON v.place_id = p.id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var url, title string
		var visit_date int64
		if err := rows.Scan(&url, &title, &visit_date); err != nil {
			return err
		}

		visited := utils.FirefoxTime(visit_date)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserHistory,
			NaturalKey: artifacts.MakeKey(
				url, artifacts.TimeKey(visited)),
			Source:    source,
			Timestamp: visited,
			Payload: ordereddict.NewDict().
				Set("url", url).
				Set("title", title).
				Set("browser", "Firefox").
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return self.firefoxDownloads(ctx, handle, case_id,
		username, source, output)
}

func (self BrowserExtractor) firefoxDownloads(
	ctx context.Context, handle *sql.DB,
	case_id, username, source string,
	output chan<- *artifacts.Artifact) error {

	// Download destinations are stored as page annotations in
	// places.sqlite.
	rows, err := handle.QueryContext(ctx, `
                SELECT p.url, a.content, a.dateAdded
                FROM moz_annos a
                JOIN moz_places p ON a.place_id = p.id
                JOIN moz_anno_attributes n ON a.anno_attribute_id = n.id
                WHERE n.name = 'downloads/destinationFileURI'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var url, target string
		var date_added int64
		if err := rows.Scan(&url, &target, &date_added); err != nil {
			return err
		}

		started := utils.FirefoxTime(date_added)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserDownload,
			NaturalKey: artifacts.MakeKey(
				url, artifacts.TimeKey(started)),
			Source:    source,
			Timestamp: started,
			Payload: ordereddict.NewDict().
				Set("url", url).
				Set("target_path", target).
				Set("browser", "Firefox").
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	return rows.Err()
}

func (self BrowserExtractor) firefoxCookies(
	ctx context.Context, handle *sql.DB,
	case_id, username, source string,
	output chan<- *artifacts.Artifact) error {

	rows, err := handle.QueryContext(ctx, `
                SELECT host, name, creationTime FROM moz_cookies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var host, name string
		var creation int64
		if err := rows.Scan(&host, &name, &creation); err != nil {
			return err
		}

		created := utils.FirefoxTime(creation)
		artifact := &artifacts.Artifact{
			CaseId: case_id,
			Type:   artifacts.BrowserCookie,
			NaturalKey: artifacts.MakeKey(
				host, name, artifacts.TimeKey(created)),
			Source:    source,
			Timestamp: created,
			Payload: ordereddict.NewDict().
				Set("host", host).
				Set("name", name).
				Set("browser", "Firefox").
				Set("username", username),
		}
		if !emit(ctx, output, self.Name(), artifact) {
			return nil
		}
	}
	return rows.Err()
}

// Copy a database out of the image to a tempfile and run the callback
// with an open read only handle on it. A missing database is not an
// error - there is simply nothing to extract. Every other failure,
// including a callback failure against a present database, is
// returned to the caller.
func withImageDatabase(volume *filesystem.Volume, path string,
	cb func(handle *sql.DB) error) error {

	data, err := volume.ReadFile(path)
	if err != nil {
		return nil
	}

	tmpfile, err := ioutil.TempFile("", "tmp*.sqlite")
	if err != nil {
		return err
	}
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.Write(data)
	tmpfile.Close()
	if err != nil {
		return err
	}

	handle, err := sql.Open("sqlite3",
		"file:"+tmpfile.Name()+"?mode=ro")
	if err != nil {
		return errors.Wrapf(err, "opening %v", path)
	}
	defer handle.Close()

	err = cb(handle)
	if err != nil {
		return errors.Wrapf(err, "%v", path)
	}
	return nil
}

func init() {
	RegisterExtractor(&BrowserExtractor{})
}
