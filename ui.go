package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"ImageRenUtil/internal/batch"
	"ImageRenUtil/internal/imagefs"
	"ImageRenUtil/internal/messages"
	"ImageRenUtil/internal/naming"
	"ImageRenUtil/internal/settings"
)

const (
	maxListed  = 100
	maxResults = 10
	watchDelay = 300 * time.Millisecond
)

type renamerUI struct {
	app    fyne.App
	window fyne.Window
	msgs   *messages.Catalog
	store  *settings.FileStore // nil when no config dir is available
	runner *batch.Runner
	log    *slog.Logger

	state   *formState
	filter  imagefs.Filter
	busy    bool
	syncing bool // set while the UI itself rewrites an entry
	watcher *imagefs.Watcher

	cancel    context.CancelFunc // non-nil while a batch runs
	batchDone chan struct{}      // closed when the last batch goroutine exits

	selectedLabel *widget.Label
	fileList      *fyne.Container
	filterMode    *widget.Select
	filterEntry   *widget.Entry

	prefixEntry       *widget.Entry
	startEntry        *widget.Entry
	renameFolderCheck *widget.Check
	dryRunCheck       *widget.Check
	undoLogCheck      *widget.Check

	previewLabel *widget.Label
	budgetLabel  *widget.Label
	noticeLabel  *widget.Label

	startBtn   *widget.Button
	cancelBtn  *widget.Button
	progress   *widget.ProgressBar
	resultsBox *fyne.Container
}

func newRenamerUI(a fyne.App, msgs *messages.Catalog, store *settings.FileStore, logger *slog.Logger) *renamerUI {
	u := &renamerUI{app: a, msgs: msgs, store: store, log: logger}

	prefix, start := settings.DefaultPrefix, settings.DefaultNumber
	var persister batch.Persister
	if store != nil {
		cfg, err := store.Load()
		if err != nil {
			logger.Warn("could not read settings", "path", store.Path, "err", err)
		}
		prefix, start = cfg.LastPrefix, cfg.LastNumber
		persister = store
	}
	u.state = newFormState(prefix, start)
	u.runner = batch.NewRunner(imagefs.OS{}, persister, logger)

	u.window = a.NewWindow(msgs.T("AppTitle"))
	u.window.Resize(fyne.NewSize(1040, 680))
	u.window.SetContent(u.build())
	u.window.SetOnClosed(func() {
		u.cancelRun()
		u.stopWatch()
	})

	u.renderSelection()
	u.recompute()
	return u
}

func (u *renamerUI) t(id string, data ...map[string]any) string {
	return u.msgs.T(id, data...)
}

/* -------------------- Layout -------------------- */

func (u *renamerUI) build() fyne.CanvasObject {
	// Top bar
	u.selectedLabel = widget.NewLabel("")
	u.selectedLabel.Truncation = fyne.TextTruncateEllipsis

	selectFolderBtn := widget.NewButtonWithIcon(u.t("SelectFolder"), theme.FolderOpenIcon(), u.pickFolder)
	addFilesBtn := widget.NewButtonWithIcon(u.t("AddFiles"), theme.FileImageIcon(), u.pickFile)
	clearBtn := widget.NewButton(u.t("Clear"), u.clearSelection)
	refreshBtn := widget.NewButtonWithIcon(u.t("Refresh"), theme.ViewRefreshIcon(), u.refresh)
	aboutBtn := widget.NewButtonWithIcon(u.t("About"), theme.InfoIcon(), func() {
		dialog.ShowInformation(u.t("About"), u.t("Subtitle")+"\n\n"+u.t("AboutText"), u.window)
	})

	topBar := container.NewBorder(nil, nil,
		container.NewHBox(selectFolderBtn, addFilesBtn, clearBtn, refreshBtn),
		container.NewHBox(aboutBtn),
		u.selectedLabel,
	)

	// Left: naming options, preview, start
	u.prefixEntry = widget.NewEntry()
	u.prefixEntry.SetPlaceHolder(u.t("PrefixPlaceholder"))
	u.prefixEntry.SetText(u.state.prefix)
	u.prefixEntry.OnChanged = u.onPrefixChanged

	u.startEntry = widget.NewEntry()
	u.startEntry.SetText(strconv.Itoa(u.state.startNumber))
	u.startEntry.OnChanged = u.onStartChanged

	u.renameFolderCheck = widget.NewCheck(u.t("RenameFolder"), func(v bool) {
		u.state.renameFolder = v
	})
	u.renameFolderCheck.SetChecked(u.state.renameFolder)

	u.dryRunCheck = widget.NewCheck(u.t("DryRun"), nil)
	u.undoLogCheck = widget.NewCheck(u.t("UndoLog"), nil)

	u.previewLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	u.budgetLabel = widget.NewLabel("")
	u.noticeLabel = widget.NewLabel("")
	u.noticeLabel.Importance = widget.WarningImportance
	u.noticeLabel.Wrapping = fyne.TextWrapWord

	form := widget.NewForm(
		widget.NewFormItem(u.t("PrefixLabel"), u.prefixEntry),
		widget.NewFormItem(u.t("StartNumberLabel"), u.startEntry),
	)

	u.startBtn = widget.NewButtonWithIcon(u.t("Start"), theme.ConfirmIcon(), u.start)
	u.startBtn.Importance = widget.HighImportance
	u.cancelBtn = widget.NewButtonWithIcon(u.t("Cancel"), theme.CancelIcon(), u.cancelRun)
	u.cancelBtn.Hide()
	u.progress = widget.NewProgressBar()
	u.progress.Hide()
	u.resultsBox = container.NewVBox()

	left := container.NewVScroll(container.NewVBox(
		heading(u.t("StepOptions")),
		form,
		u.renameFolderCheck,
		widget.NewSeparator(),
		u.previewLabel,
		u.budgetLabel,
		u.noticeLabel,
		widget.NewSeparator(),
		heading(u.t("StepStart")),
		container.NewHBox(u.dryRunCheck, u.undoLogCheck),
		container.NewBorder(nil, nil, nil, u.cancelBtn, u.startBtn),
		u.progress,
		u.resultsBox,
	))

	// Right: filter + selected files
	modeLabels := make([]string, len(imagefs.FilterModes))
	modeByLabel := make(map[string]imagefs.FilterMode, len(imagefs.FilterModes))
	for i, m := range imagefs.FilterModes {
		modeLabels[i] = u.t(filterModeID(m))
		modeByLabel[modeLabels[i]] = m
	}
	u.filter = imagefs.Filter{Mode: imagefs.FilterContains}
	u.filterMode = widget.NewSelect(modeLabels, nil)
	u.filterMode.SetSelected(modeLabels[0])
	u.filterMode.OnChanged = func(sel string) {
		u.filter.Mode = modeByLabel[sel]
		u.refresh()
	}
	u.filterEntry = widget.NewEntry()
	u.filterEntry.SetPlaceHolder(u.t("FilterPlaceholder"))
	u.filterEntry.OnChanged = func(v string) {
		u.filter.Value = v
		u.refresh()
	}

	u.fileList = container.NewVBox()
	right := container.NewBorder(
		container.NewVBox(
			heading(u.t("StepSelect")),
			container.NewBorder(nil, nil, widget.NewLabel(u.t("FilterLabel")), nil,
				container.NewGridWithColumns(2, u.filterMode, u.filterEntry)),
			widget.NewSeparator(),
		),
		nil, nil, nil,
		container.NewVScroll(u.fileList),
	)

	split := container.NewHSplit(left, right)
	split.Offset = 0.42
	return container.NewBorder(topBar, nil, nil, nil, split)
}

func filterModeID(m imagefs.FilterMode) string {
	switch m {
	case imagefs.FilterStartsWith:
		return "FilterStartsWith"
	case imagefs.FilterEndsWith:
		return "FilterEndsWith"
	case imagefs.FilterExtension:
		return "FilterExtension"
	default:
		return "FilterContains"
	}
}

func heading(text string) *widget.Label {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}

func statusLabel(text string, imp widget.Importance) *widget.Label {
	l := heading(text)
	l.Importance = imp
	return l
}

/* -------------------- Form events -------------------- */

func (u *renamerUI) onPrefixChanged(s string) {
	if u.syncing {
		return
	}
	u.state.prefix = s
	u.recompute()
}

func (u *renamerUI) onStartChanged(s string) {
	if u.syncing {
		return
	}
	if u.state.setStartNumber(s) == naming.StartClamped {
		u.setEntryText(u.startEntry, strconv.Itoa(u.state.startNumber))
		u.notify(u.t("StartClamped", map[string]any{"Max": naming.MaxNumber}))
	}
	u.recompute()
}

func (u *renamerUI) setEntryText(e *widget.Entry, s string) {
	u.syncing = true
	defer func() { u.syncing = false }()
	e.SetText(s)
}

// recompute re-derives the naming budget and preview after any change to
// the prefix, the start number or the selection.
func (u *renamerUI) recompute() {
	pv := u.state.preview(time.Now())
	if pv.truncated {
		u.setEntryText(u.prefixEntry, u.state.prefix)
		u.notify(u.t("PrefixTruncated", map[string]any{"Prefix": u.state.prefix, "Max": pv.cfg.MaxPrefixLength}))
	}

	if pv.last == "" {
		u.previewLabel.SetText(u.t("PreviewSingle", map[string]any{"Name": pv.first}))
	} else {
		u.previewLabel.SetText(u.t("PreviewRange", map[string]any{"First": pv.first, "Last": pv.last}))
	}
	u.budgetLabel.SetText(u.t("BudgetInfo", map[string]any{"Max": pv.cfg.MaxPrefixLength}))

	if u.busy || len(u.state.files) == 0 {
		u.startBtn.Disable()
	} else {
		u.startBtn.Enable()
	}
}

func (u *renamerUI) notify(msg string) {
	u.noticeLabel.SetText(msg)
	u.app.SendNotification(fyne.NewNotification(u.t("NoticeTitle"), msg))
}

/* -------------------- Selection -------------------- */

func (u *renamerUI) pickFolder() {
	dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, u.window)
			return
		}
		if uri == nil {
			return
		}
		u.loadFolder(uri.Path())
	}, u.window).Show()
}

func (u *renamerUI) pickFile() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.window)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		closeWithLog("file picker", rc)

		if u.state.folder != "" {
			u.stopWatch()
		}
		if u.state.addFile(path) {
			u.renderSelection()
			u.recompute()
		}
	}, u.window)
	d.SetFilter(storage.NewExtensionFileFilter(imagefs.Extensions))
	d.Show()
}

func (u *renamerUI) loadFolder(path string) {
	files, err := imagefs.ListImageFiles(path)
	if err != nil {
		dialog.ShowError(err, u.window)
		u.clearSelection()
		return
	}

	u.state.setFiles(path, u.filter.Apply(files))
	u.watch(path)
	u.renderSelection()
	u.recompute()

	if len(files) == 0 {
		dialog.ShowInformation(u.t("AppTitle"), u.t("NoImagesInFolder"), u.window)
	}
}

// refresh re-lists the selected folder through the current filter; manual
// file picks are left alone.
func (u *renamerUI) refresh() {
	if u.busy || u.state.folder == "" {
		return
	}
	files, err := imagefs.ListImageFiles(u.state.folder)
	if err != nil {
		u.log.Warn("refresh failed", "folder", u.state.folder, "err", err)
		return
	}
	u.state.setFiles(u.state.folder, u.filter.Apply(files))
	u.renderSelection()
	u.recompute()
}

func (u *renamerUI) clearSelection() {
	u.stopWatch()
	u.state.reset()
	u.renderSelection()
	u.recompute()
}

func (u *renamerUI) watch(dir string) {
	u.stopWatch()
	w, err := imagefs.Watch(dir, watchDelay,
		func() { fyne.Do(u.refresh) },
		func(err error) { u.log.Warn("folder watch error", "folder", dir, "err", err) },
	)
	if err != nil {
		u.log.Warn("cannot watch folder", "folder", dir, "err", err)
		return
	}
	u.watcher = w
}

func (u *renamerUI) stopWatch() {
	if u.watcher != nil {
		closeWithLog("folder watcher", u.watcher)
		u.watcher = nil
	}
}

func (u *renamerUI) renderSelection() {
	files := u.state.files
	switch {
	case u.state.folder != "":
		u.selectedLabel.SetText(u.t("FolderSelected", map[string]any{"Path": u.state.folder}))
	case len(files) == 1:
		u.selectedLabel.SetText(u.t("FileSelected", map[string]any{"Name": filepath.Base(files[0])}))
	case len(files) > 1:
		u.selectedLabel.SetText(u.t("FilesSelected", map[string]any{"Count": len(files)}))
	default:
		u.selectedLabel.SetText(u.t("NoSelection"))
	}

	u.fileList.Objects = nil
	for _, name := range u.displayNames(firstN(files, maxListed)) {
		u.fileList.Add(widget.NewLabel(name))
	}
	if len(files) > maxListed {
		u.fileList.Add(widget.NewLabel(u.t("MoreFiles", map[string]any{"Count": len(files) - maxListed})))
	}
	u.fileList.Refresh()
}

// displayNames shows paths relative to the selected folder so files from
// subfolders stay distinguishable.
func (u *renamerUI) displayNames(paths []string) []string {
	if u.state.folder == "" {
		return baseNames(paths)
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(u.state.folder, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		out[i] = rel
	}
	return out
}

/* -------------------- Start / Results -------------------- */

func (u *renamerUI) start() {
	if u.busy {
		return
	}
	pv := u.state.preview(time.Now())
	req := u.state.request()

	if err := batch.Validate(req); err != nil {
		if errors.Is(err, batch.ErrNoFilesSelected) {
			dialog.ShowInformation(u.t("NothingToDo"), u.t("NothingToDoBody"), u.window)
			return
		}
		dialog.ShowError(err, u.window)
		return
	}

	last := pv.last
	if last == "" {
		last = pv.first
	}
	body := u.t("ConfirmBody", map[string]any{"Count": len(req.Files), "First": pv.first, "Last": last})

	d := dialog.NewConfirm(u.t("ConfirmTitle"), body, func(ok bool) {
		if !ok {
			return
		}
		u.withUndoLog(func(w io.WriteCloser, path string) {
			u.run(req, w, path)
		})
	}, u.window)
	d.SetConfirmText(u.t("Proceed"))
	d.SetDismissText(u.t("Cancel"))
	d.Show()
}

// withUndoLog asks where to save the undo CSV when requested. A cancelled
// save dialog continues without a log.
func (u *renamerUI) withUndoLog(next func(io.WriteCloser, string)) {
	if !u.undoLogCheck.Checked {
		next(nil, "")
		return
	}
	d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			fyne.LogError("undo log save dialog", err)
		}
		if err != nil || uc == nil {
			next(nil, "")
			return
		}
		next(uc, uc.URI().Path())
	}, u.window)
	d.SetFileName(fmt.Sprintf("undo_log_%s.csv", time.Now().Format("20060102_150405")))
	d.Show()
}

func (u *renamerUI) run(req naming.Request, undo io.WriteCloser, undoPath string) {
	u.busy = true
	u.stopWatch()
	u.startBtn.SetText(u.t("Processing"))
	u.startBtn.Disable()
	u.cancelBtn.Enable()
	u.cancelBtn.Show()
	u.progress.SetValue(0)
	u.progress.Show()
	u.resultsBox.Objects = nil
	u.resultsBox.Refresh()
	u.noticeLabel.SetText("")

	opts := batch.Options{
		DryRun:     u.dryRunCheck.Checked,
		FolderUnit: u.t("FolderUnit"),
		Progress: func(done, total int) {
			fyne.Do(func() { u.progress.SetValue(float64(done) / float64(total)) })
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	done := make(chan struct{})
	u.batchDone = done

	go func() {
		defer close(done)
		defer cancel()
		res, err := u.runner.Run(ctx, req, opts)
		if undo != nil {
			if werr := batch.WriteUndoCSV(undo, res.Items); werr != nil {
				fyne.LogError("write undo log", werr)
				undoPath = ""
			}
			closeWithLog("undo log", undo)
		}
		fyne.Do(func() { u.finish(res, err, undoPath) })
	}()
}

// cancelRun stops a running batch before its next file. Files already
// renamed keep their new names.
func (u *renamerUI) cancelRun() {
	if u.cancel == nil {
		return
	}
	u.cancel()
	u.cancelBtn.Disable()
}

func (u *renamerUI) finish(res batch.Result, err error, undoPath string) {
	u.busy = false
	u.cancel = nil
	u.cancelBtn.Hide()
	u.startBtn.SetText(u.t("Start"))
	u.progress.Hide()

	switch {
	case errors.Is(err, context.Canceled):
		u.log.Info("batch cancelled", "renamed", len(res.Success))
		u.notify(u.t("RunCancelled"))
	case err != nil:
		u.log.Error("batch failed", "err", err)
		dialog.ShowError(fmt.Errorf("%s: %w", u.t("OperationFailed"), err), u.window)
	}
	u.showResults(res, undoPath)

	if res.DryRun {
		if u.state.folder != "" {
			u.watch(u.state.folder)
		}
		u.recompute()
		return
	}

	// The selection is gone after a real run: the files and possibly the
	// folder have new names.
	u.state.reset()
	if u.store != nil {
		u.state.prefix = u.store.LastPrefix()
		u.state.startNumber = u.store.LastStartNumber()
	} else if len(res.Plan.Entries) > 0 {
		u.state.startNumber = clamp(res.Plan.Last()+1, 1, naming.MaxNumber)
	}
	u.setEntryText(u.prefixEntry, u.state.prefix)
	u.setEntryText(u.startEntry, strconv.Itoa(u.state.startNumber))
	u.renderSelection()
	u.recompute()
}

func (u *renamerUI) showResults(res batch.Result, undoPath string) {
	box := u.resultsBox
	box.Objects = nil

	if n := len(res.Success); n > 0 {
		title := "SuccessTitle"
		if res.DryRun {
			title = "DryRunTitle"
		}
		box.Add(statusLabel(u.t(title, map[string]any{"Count": n}), widget.SuccessImportance))
		for _, r := range firstN(res.Success, maxResults) {
			box.Add(widget.NewLabel(r.Original + " → " + r.New))
		}
		if n > maxResults {
			box.Add(widget.NewLabel(u.t("MoreFiles", map[string]any{"Count": n - maxResults})))
		}
	}

	if n := len(res.Errors); n > 0 {
		box.Add(statusLabel(u.t("ErrorTitle", map[string]any{"Count": n}), widget.DangerImportance))
		for _, f := range res.Errors {
			box.Add(widget.NewLabel(f.File + ": " + f.Error))
		}
	}

	if res.FolderRenamed != nil {
		box.Add(statusLabel(u.t("FolderRenamed"), widget.SuccessImportance))
		box.Add(widget.NewLabel(res.FolderRenamed.Original + " → " + res.FolderRenamed.New))
	} else if res.FolderRenameError != "" {
		box.Add(statusLabel(u.t("FolderRenameFailed"), widget.DangerImportance))
		box.Add(widget.NewLabel(res.FolderRenameError))
	}

	if u.undoLogCheck.Checked {
		box.Add(widget.NewLabel(u.t("UndoSaved", map[string]any{"Path": prettyPath(undoPath)})))
	}
	box.Refresh()
}
