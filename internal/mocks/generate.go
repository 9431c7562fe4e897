package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Store --dir ../domain/credential --output domain/credential --outpkg credentialmock --filename store_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/job --output domain/job --outpkg jobmock --filename repository_mock.go
