package transports

import (
	"context"
	"math"
	"net"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/protoc-gen-go/descriptor"
	"github.com/golang/protobuf/ptypes/wrappers"
	. "github.com/smartystreets/goconvey/convey"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "github.com/cage1016/gokitsumsvc/pb/sumsvc"
	"github.com/cage1016/gokitsumsvc/pkg/sumsvc/service"
)

func startGRPC(svc service.SumsvcService) (*grpc.ClientConn, func()) {
	otTracer, zipkinTracer := noopTracers()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	pb.RegisterSumsvcServer(server, MakeGRPCServer(newTestEndpoints(svc), otTracer, zipkinTracer, log.NewNopLogger()))
	reflection.Register(server)
	go server.Serve(lis)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithInsecure(),
	)
	So(err, ShouldBeNil)
	return conn, func() {
		conn.Close()
		server.Stop()
	}
}

func TestGRPCSum(t *testing.T) {
	otTracer, zipkinTracer := noopTracers()
	ctx := context.Background()

	Convey("Given a lenient sumsvc over gRPC", t, func() {
		conn, stop := startGRPC(service.New(log.NewNopLogger(), discard.NewCounter(), false))
		defer stop()
		client := NewGRPCClient(conn, otTracer, zipkinTracer, log.NewNopLogger())

		Convey("the client returns the sum", func() {
			rs, err := client.Sum(ctx, str("2"), str("3"))
			So(err, ShouldBeNil)
			So(rs, ShouldEqual, 5)
		})

		Convey("absent operands stay absent on the wire", func() {
			reply, err := pb.NewSumsvcClient(conn).Sum(ctx, &pb.SumRequest{B: &wrappers.StringValue{Value: "3"}})
			So(err, ShouldBeNil)
			So(reply.Err, ShouldBeEmpty)
			So(math.IsNaN(reply.Rs), ShouldBeTrue)
		})

		Convey("an empty operand is zero", func() {
			rs, err := client.Sum(ctx, str(""), str("4"))
			So(err, ShouldBeNil)
			So(rs, ShouldEqual, 4)
		})
	})

	Convey("Given a strict sumsvc over gRPC", t, func() {
		conn, stop := startGRPC(service.New(log.NewNopLogger(), discard.NewCounter(), true))
		defer stop()
		client := NewGRPCClient(conn, otTracer, zipkinTracer, log.NewNopLogger())

		Convey("service errors come back as their sentinels", func() {
			_, err := client.Sum(ctx, str("foo"), str("3"))
			So(err, ShouldEqual, service.ErrInvalidOperand)
			_, err = client.Sum(ctx, str("1"), nil)
			So(err, ShouldEqual, service.ErrMissingOperand)
		})
	})

	Convey("Given a service that panics", t, func() {
		conn, stop := startGRPC(panicService{})
		defer stop()

		Convey("the call fails with Internal", func() {
			_, err := pb.NewSumsvcClient(conn).Sum(ctx, &pb.SumRequest{})
			So(status.Code(err), ShouldEqual, codes.Internal)
		})
	})
}

func TestGRPCReflection(t *testing.T) {
	ctx := context.Background()

	Convey("Given a sumsvc with reflection registered", t, func() {
		conn, stop := startGRPC(service.New(log.NewNopLogger(), discard.NewCounter(), false))
		defer stop()

		Convey("the Sumsvc service is described", func() {
			stream, err := rpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
			So(err, ShouldBeNil)
			err = stream.Send(&rpb.ServerReflectionRequest{
				MessageRequest: &rpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: "pb.Sumsvc"},
			})
			So(err, ShouldBeNil)
			resp, err := stream.Recv()
			So(err, ShouldBeNil)
			So(resp.GetErrorResponse(), ShouldBeNil)

			var file *descriptor.FileDescriptorProto
			for _, b := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
				fd := &descriptor.FileDescriptorProto{}
				So(proto.Unmarshal(b, fd), ShouldBeNil)
				if fd.GetName() == "sumsvc.proto" {
					file = fd
				}
			}
			So(file, ShouldNotBeNil)
			So(file.GetService(), ShouldHaveLength, 1)
			So(file.GetService()[0].GetName(), ShouldEqual, "Sumsvc")
			So(file.GetService()[0].GetMethod()[0].GetInputType(), ShouldEqual, ".pb.SumRequest")
			So(file.GetMessageType(), ShouldHaveLength, 2)
		})
	})
}
