package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/card-reader/internal/card"
)

func writePNG(path string) {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)))).To(Succeed())
	Expect(os.WriteFile(path, buf.Bytes(), 0644)).To(Succeed())
}

func collect(frames <-chan Frame) []Frame {
	var out []Frame
	for f := range frames {
		out = append(out, f)
	}
	return out
}

var _ = Describe("DirectorySource", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	When("the directory has frames", func() {
		BeforeEach(func() {
			writePNG(filepath.Join(dir, "frame-002.png"))
			writePNG(filepath.Join(dir, "frame-001.png"))
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a frame"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, ".DS_Store"), []byte{0, 1}, 0644)).To(Succeed())
			Expect(os.Mkdir(filepath.Join(dir, "nested"), 0755)).To(Succeed())
		})

		It("should deliver the images in name order", func() {
			frames, err := NewDirectorySource(dir).Start(context.Background())
			Expect(err).NotTo(HaveOccurred())

			got := collect(frames)
			Expect(got).To(HaveLen(2))
			Expect(got[0].Name).To(Equal("frame-001.png"))
			Expect(got[0].Seq).To(Equal(uint64(1)))
			Expect(got[1].Name).To(Equal("frame-002.png"))
			Expect(got[1].ContentType).To(Equal("image/png"))
		})

		It("should replay the frames when looping", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			frames, err := NewDirectorySource(dir, WithLoop(true)).Start(ctx)
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for i := 0; i < 5; i++ {
				f := <-frames
				names = append(names, f.Name)
			}
			Expect(names).To(Equal([]string{"frame-001.png", "frame-002.png", "frame-001.png", "frame-002.png", "frame-001.png"}))

			cancel()
			Eventually(frames).Should(BeClosed())
		})

		It("should pace frames by the interval", func() {
			start := time.Now()
			frames, err := NewDirectorySource(dir, WithInterval(20*time.Millisecond)).Start(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(collect(frames)).To(HaveLen(2))
			Expect(time.Since(start)).To(BeNumerically(">=", 40*time.Millisecond))
		})
	})

	When("the directory does not exist", func() {
		It("should report a camera initialization failure", func() {
			_, err := NewDirectorySource(filepath.Join(dir, "missing")).Start(context.Background())
			Expect(card.IsCameraInitialization(err)).To(BeTrue())
		})
	})

	When("the directory has no frames", func() {
		It("should report a camera initialization failure", func() {
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644)).To(Succeed())
			_, err := NewDirectorySource(dir).Start(context.Background())
			Expect(card.IsCameraInitialization(err)).To(BeTrue())
		})
	})

	When("the directory cannot be read", func() {
		It("should report a camera permission failure", func() {
			if os.Geteuid() == 0 {
				Skip("permissions are not enforced for root")
			}
			locked := filepath.Join(dir, "locked")
			Expect(os.Mkdir(locked, 0000)).To(Succeed())
			DeferCleanup(os.Chmod, locked, os.FileMode(0755))

			_, err := NewDirectorySource(locked).Start(context.Background())
			Expect(card.IsCameraPermission(err)).To(BeTrue())

			var permErr *card.CameraPermissionError
			Expect(err).To(BeAssignableToTypeOf(permErr))
			Expect(err.(*card.CameraPermissionError).Status).To(Equal(card.StatusDenied))
		})
	})
})
