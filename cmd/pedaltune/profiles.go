package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// showProfilesDialog lists stored profiles and saves, loads or deletes them.
func showProfilesDialog(state *appState) {
	if !state.connected() {
		return
	}
	svc := state.box.Service

	var names []string
	selected := -1
	list := widget.NewList(
		func() int { return len(names) },
		func() fyne.CanvasObject { return widget.NewLabel("profile") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(names[id])
		},
	)

	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Profile name")

	reload := func() {
		var err error
		names, err = svc.Profiles()
		if err != nil {
			dialog.ShowError(err, state.window)
		}
		selected = -1
		list.UnselectAll()
		list.Refresh()
	}
	list.OnSelected = func(id widget.ListItemID) {
		selected = id
		nameEntry.SetText(names[id])
	}

	saveBtn := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		if err := svc.SaveProfile(nameEntry.Text); err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		reload()
	})
	loadBtn := widget.NewButtonWithIcon("Load", theme.FolderOpenIcon(), func() {
		if selected < 0 {
			return
		}
		// A persist failure still applied the profile, so refresh either way.
		if err := svc.LoadProfile(names[selected]); err != nil {
			dialog.ShowError(err, state.window)
		}
		state.selectChannel(state.selectedChannel())
	})
	deleteBtn := widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), func() {
		if selected < 0 {
			return
		}
		name := names[selected]
		dialog.ShowConfirm("Delete profile", fmt.Sprintf("Delete %q?", name), func(ok bool) {
			if !ok {
				return
			}
			if err := svc.DeleteProfile(name); err != nil {
				dialog.ShowError(err, state.window)
			}
			reload()
		}, state.window)
	})

	reload()

	content := container.NewBorder(
		nil,
		container.NewVBox(nameEntry, container.NewHBox(saveBtn, loadBtn, deleteBtn)),
		nil,
		nil,
		list,
	)

	d := dialog.NewCustom("Profiles", "Close", content, state.window)
	d.Resize(fyne.NewSize(400, 450))
	d.Show()
}
