// Сборка и публикация образа сервиса редактора портала.
package main

import (
	"context"
	"dagger/portal/internal/dagger"
	"fmt"
)

type Portal struct{}

func (m *Portal) GoBuildEnv(source *dagger.Directory) *dagger.Container {
	goCache := dag.CacheVolume("go")
	return dag.Container().
		From("golang:alpine").
		WithDirectory("/src", source).
		WithWorkdir("/src").
		WithEnvVariable("GOOS", "linux").
		WithMountedCache("/go/pkg/mod", goCache).
		WithExec([]string{"go", "mod", "tidy"})
}

// Test прогоняет тесты модуля.
func (m *Portal) Test(ctx context.Context, source *dagger.Directory) (string, error) {
	return m.GoBuildEnv(source).
		WithEnvVariable("CGO_ENABLED", "0").
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}

// Docs собирает справку по кодам ошибок и командам редактора.
func (m *Portal) Docs(source *dagger.Directory) *dagger.File {
	return m.GoBuildEnv(source).
		WithExec([]string{"go", "run", "./cmd/docsgen", "-out", "/build/api_errors.md"}).
		File("/build/api_errors.md")
}

func (m *Portal) BackEnv(platform dagger.Platform, appBin *dagger.File, docs *dagger.File) *dagger.Container {
	return dag.Container(dagger.ContainerOpts{
		Platform: platform,
	}).
		From("alpine").
		WithEnvVariable("TZ", "Europe/Moscow").
		WithExec([]string{"apk", "add", "--no-cache", "tzdata"}).
		WithWorkdir("/app").
		WithFile("/app/app", appBin).
		WithFile("/app/docs/api_errors.md", docs).
		WithEnvVariable("STORAGE_DIR", "/app/storage").
		WithEntrypoint([]string{"/app/app"})
}

func (m *Portal) Build(version string, source *dagger.Directory) []*dagger.Container {
	buildMatrix := []struct {
		Arch     string
		BinName  string
		Platform dagger.Platform
	}{
		{
			Arch:     "amd64",
			BinName:  "/build/portal-editor-linux",
			Platform: dagger.Platform("linux/amd64"),
		},
		{
			Arch:     "arm64",
			BinName:  "/build/portal-editor-linux-arm64",
			Platform: dagger.Platform("linux/arm64/v8"),
		},
	}

	docs := m.Docs(source)

	var images []*dagger.Container
	for _, buildParam := range buildMatrix {
		builder := m.GoBuildEnv(source).
			WithEnvVariable("GOARCH", buildParam.Arch).
			WithExec([]string{"go", "build", "-o", buildParam.BinName, "-ldflags", fmt.Sprintf("-s -w -X main.version=%s", version), "cmd/portal-editor/main.go"})

		image := m.BackEnv(buildParam.Platform, builder.File(buildParam.BinName), docs).
			WithLabel("org.opencontainers.image.source", "https://github.com/aisa-it/portal").
			WithAnnotation("org.opencontainers.image.source", "https://github.com/aisa-it/portal")
		images = append(images, image)
	}
	return images
}

func (m *Portal) Publish(
	ctx context.Context,
	images []*dagger.Container,
	registrySecret *dagger.Secret,
	registryUser string,
	imageName string,
) (string, error) {
	return dag.Container().
		WithRegistryAuth("ghcr.io", registryUser, registrySecret).
		Publish(ctx, "ghcr.io/"+imageName, dagger.ContainerPublishOpts{PlatformVariants: images})
}

func (m *Portal) Export(
	ctx context.Context,
	images []*dagger.Container,
	imageName string,
) (string, error) {
	return dag.Container().
		Export(ctx, imageName, dagger.ContainerExportOpts{PlatformVariants: images})
}

func (m *Portal) BuildLocal(ctx context.Context, name string, source *dagger.Directory) (string, error) {
	return m.Export(ctx, m.Build("v0.1.0", source), name)
}

func (m *Portal) BuildApp(ctx context.Context, version string, source *dagger.Directory,
	registrySecret *dagger.Secret,
	registryUser string,
	imageName string,
) error {
	if _, err := m.Test(ctx, source); err != nil {
		return err
	}
	images := m.Build(version, source)

	for _, tag := range []string{version, "latest"} {
		ref, err := m.Publish(ctx, images, registrySecret, registryUser, fmt.Sprintf("%s:%s", imageName, tag))
		if err != nil {
			return err
		}
		fmt.Println(ref)
	}
	return nil
}
