package main

import (
	"context"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/goushi/pkg/scope"
)

// runGUI runs the supervisor next to the Fyne event loop. The status window
// keeps the application alive between runs; every run opens its own chart
// window.
func runGUI(ctx context.Context, sup *supervisor) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	application := app.NewWithID("com.itohio.goushi")

	window := application.NewWindow("ushi")
	window.Resize(fyne.NewSize(480, 120))
	window.SetMaster()

	status := widget.NewLabel("Enter the run parameters in the terminal")
	status.Wrapping = fyne.TextWrapWord

	stopBtn := widget.NewButtonWithIcon("Stop run", theme.MediaStopIcon(), sup.stopRun)
	window.SetContent(container.NewBorder(nil, stopBtn, nil, nil, status))

	// Closing the window stops the supervisor, which quits the app after teardown
	window.SetCloseIntercept(func() {
		status.SetText("Stopping...")
		cancel()
	})

	sup.status = func(msg string) {
		fyne.Do(func() { status.SetText(msg) })
	}
	sup.surface = func(title string) scope.Surface {
		return scope.NewWindow(application, title, sup.cfg.Plot)
	}

	errc := make(chan error, 1)
	go func() {
		err := sup.run(ctx)
		errc <- err
		fyne.Do(application.Quit)
	}()

	window.Show()
	application.Run()

	cancel()
	return <-errc
}
